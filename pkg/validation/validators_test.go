package validation

import (
	"testing"

	"erinnerungslicht-backend/pkg/i18n"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() Fields {
	return Fields{
		Name:    "Jo",
		Email:   "jo@example.com",
		Message: "Hello there, I need help.",
		Privacy: true,
	}
}

func TestValidateAcceptsValidSubmission(t *testing.T) {
	assert.Empty(t, Validate(validFields(), i18n.German))
}

func TestValidateReportsEveryViolationInOrder(t *testing.T) {
	f := Fields{Name: "A", Email: "bad-email", Message: "short", Privacy: false}

	messages := Validate(f, i18n.German)

	require.Len(t, messages, 4)
	assert.Equal(t, []string{
		"Name ist erforderlich (mindestens 2 Zeichen)",
		"Gültige E-Mail-Adresse ist erforderlich",
		"Nachricht ist erforderlich (mindestens 10 Zeichen)",
		"Datenschutzerklärung muss akzeptiert werden",
	}, messages)
}

func TestValidateEnglishMessages(t *testing.T) {
	messages := Validate(Fields{}, i18n.English)
	assert.Equal(t, []string{
		"Name is required (at least 2 characters)",
		"A valid email address is required",
		"Message is required (at least 10 characters)",
		"Privacy policy must be accepted",
	}, messages)
}

func TestValidateSingleRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Fields)
		field  Field
	}{
		{"name whitespace only", func(f *Fields) { f.Name = "   " }, FieldName},
		{"name one char after trim", func(f *Fields) { f.Name = " J " }, FieldName},
		{"email without tld", func(f *Fields) { f.Email = "jo@example" }, FieldEmail},
		{"email with space", func(f *Fields) { f.Email = "jo @example.com" }, FieldEmail},
		{"email double at", func(f *Fields) { f.Email = "jo@@example.com" }, FieldEmail},
		{"message nine chars", func(f *Fields) { f.Message = "123456789" }, FieldMessage},
		{"message padded", func(f *Fields) { f.Message = "   short    " }, FieldMessage},
		{"privacy unchecked", func(f *Fields) { f.Privacy = false }, FieldPrivacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			violations := Check(f, ContactRules)
			require.Len(t, violations, 1)
			assert.Equal(t, tt.field, violations[0].Rule.Target())
		})
	}
}

func TestLengthCountsRunes(t *testing.T) {
	f := validFields()
	f.Name = "Ö"
	assert.Len(t, Check(f, ContactRules), 1)

	f.Name = "Öz"
	assert.Empty(t, Check(f, ContactRules))
}

func TestValidateIsIdempotent(t *testing.T) {
	f := Fields{Name: "", Email: "x", Message: "tiny", Privacy: true}
	first := Validate(f, i18n.German)
	second := Validate(f, i18n.German)
	assert.Equal(t, first, second)
	assert.Equal(t, Fields{Name: "", Email: "x", Message: "tiny", Privacy: true}, f)
}

func TestInlineMessages(t *testing.T) {
	violations := Check(Fields{Email: "nope", Message: "tiny"}, ContactRules)
	require.Len(t, violations, 4)

	assert.Equal(t, "Dieses Feld ist erforderlich.", Inline(violations[0], i18n.German))
	assert.Equal(t, "Bitte geben Sie eine gültige E-Mail-Adresse ein.", Inline(violations[1], i18n.German))
	assert.Equal(t, "At least 10 characters required.", Inline(violations[2], i18n.English))
	assert.Equal(t, "You must agree to this condition.", Inline(violations[3], i18n.English))
}

func TestEmailFormat(t *testing.T) {
	rules := []Rule{EmailFormat{Field: FieldEmail}}
	for _, addr := range []string{"a@b.co", "jo.doe+tag@example.de"} {
		assert.Empty(t, Check(Fields{Email: addr}, rules), addr)
	}
	for _, addr := range []string{"a@b", "a b@c.de", "@c.de", "a@@c.de"} {
		assert.Len(t, Check(Fields{Email: addr}, rules), 1, addr)
	}
}
