// Package validation checks the structural constraints of a contact submission.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"erinnerungslicht-backend/pkg/i18n"
)

// emailRegex is deliberately loose: local@domain.tld without whitespace.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Field names match the JSON keys of the contact form.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldMessage Field = "message"
	FieldPrivacy Field = "privacy"
)

// Fields is the subset of a submission the validator looks at.
type Fields struct {
	Name    string
	Email   string
	Message string
	Privacy bool
}

func (f Fields) text(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldMessage:
		return f.Message
	default:
		return ""
	}
}

// Rule is one constraint. The set of implementations is closed.
type Rule interface {
	Target() Field
	isRule()
}

// MinLength requires a non-empty value with at least Min runes after trimming.
type MinLength struct {
	Field Field
	Min   int
}

// EmailFormat requires a value shaped like local@domain.tld.
type EmailFormat struct {
	Field Field
}

// MustAccept requires a checked checkbox.
type MustAccept struct {
	Field Field
}

func (r MinLength) Target() Field   { return r.Field }
func (r EmailFormat) Target() Field { return r.Field }
func (r MustAccept) Target() Field  { return r.Field }

func (MinLength) isRule()   {}
func (EmailFormat) isRule() {}
func (MustAccept) isRule()  {}

// ContactRules is the rule set of the contact form, in reporting order.
var ContactRules = []Rule{
	MinLength{Field: FieldName, Min: 2},
	EmailFormat{Field: FieldEmail},
	MinLength{Field: FieldMessage, Min: 10},
	MustAccept{Field: FieldPrivacy},
}

// Violation is a failed rule. Missing is set when the value was absent
// rather than malformed.
type Violation struct {
	Rule    Rule
	Missing bool
}

// Check evaluates every rule; there is no short-circuit.
func Check(f Fields, rules []Rule) []Violation {
	var violations []Violation
	for _, rule := range rules {
		if v, failed := evaluate(f, rule); failed {
			violations = append(violations, v)
		}
	}
	return violations
}

func evaluate(f Fields, rule Rule) (Violation, bool) {
	switch r := rule.(type) {
	case MinLength:
		value := strings.TrimSpace(f.text(r.Field))
		if value == "" {
			return Violation{Rule: r, Missing: true}, true
		}
		return Violation{Rule: r}, utf8.RuneCountInString(value) < r.Min
	case EmailFormat:
		value := f.text(r.Field)
		if value == "" {
			return Violation{Rule: r, Missing: true}, true
		}
		return Violation{Rule: r}, !emailRegex.MatchString(value)
	case MustAccept:
		return Violation{Rule: r, Missing: true}, !f.Privacy
	default:
		panic(fmt.Sprintf("validation: unhandled rule %T", rule))
	}
}

// Validate returns the ValidationResult for the contact form: one message per
// violated rule, in rule order. An empty result means the fields are valid.
func Validate(f Fields, lang i18n.Language) []string {
	violations := Check(f, ContactRules)
	if len(violations) == 0 {
		return nil
	}
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		messages = append(messages, Summary(v, lang))
	}
	return messages
}
