package validation

import (
	"fmt"

	"erinnerungslicht-backend/pkg/i18n"
)

var fieldLabels = map[i18n.Language]map[Field]string{
	i18n.German: {
		FieldName:    "Name",
		FieldEmail:   "E-Mail-Adresse",
		FieldMessage: "Nachricht",
		FieldPrivacy: "Datenschutzerklärung",
	},
	i18n.English: {
		FieldName:    "Name",
		FieldEmail:   "Email address",
		FieldMessage: "Message",
		FieldPrivacy: "Privacy policy",
	},
}

func label(lang i18n.Language, field Field) string {
	labels, ok := fieldLabels[lang]
	if !ok {
		labels = fieldLabels[i18n.German]
	}
	if l, ok := labels[field]; ok {
		return l
	}
	return string(field)
}

// Summary renders a violation as one line of the API's error list.
func Summary(v Violation, lang i18n.Language) string {
	name := label(lang, v.Rule.Target())
	switch r := v.Rule.(type) {
	case MinLength:
		if lang == i18n.English {
			return fmt.Sprintf("%s is required (at least %d characters)", name, r.Min)
		}
		return fmt.Sprintf("%s ist erforderlich (mindestens %d Zeichen)", name, r.Min)
	case EmailFormat:
		if lang == i18n.English {
			return fmt.Sprintf("A valid %s is required", lowerFirst(name))
		}
		return fmt.Sprintf("Gültige %s ist erforderlich", name)
	case MustAccept:
		if lang == i18n.English {
			return fmt.Sprintf("%s must be accepted", name)
		}
		return fmt.Sprintf("%s muss akzeptiert werden", name)
	default:
		panic(fmt.Sprintf("validation: unhandled rule %T", v.Rule))
	}
}

// Inline renders a violation as the short message shown next to the field.
func Inline(v Violation, lang i18n.Language) string {
	switch r := v.Rule.(type) {
	case MinLength:
		if v.Missing {
			return i18n.T(lang, i18n.MsgFieldRequired)
		}
		return i18n.T(lang, i18n.MsgFieldMinLength, r.Min)
	case EmailFormat:
		if v.Missing {
			return i18n.T(lang, i18n.MsgFieldRequired)
		}
		return i18n.T(lang, i18n.MsgFieldEmail)
	case MustAccept:
		return i18n.T(lang, i18n.MsgFieldCheckbox)
	default:
		panic(fmt.Sprintf("validation: unhandled rule %T", v.Rule))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}
