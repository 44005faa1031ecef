// Package i18n holds the user-facing texts of the contact pipeline in the two
// languages the site is published in.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type Language string

const (
	German  Language = "de"
	English Language = "en"
)

var (
	supportedTags = []language.Tag{language.German, language.English}
	supported     = []Language{German, English}
	matcher       = language.NewMatcher(supportedTags)
)

// Parse accepts "de", "en" and regional variants such as "de-AT".
func Parse(s string) (Language, bool) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return supported[idx], true
}

// Negotiate picks a language from an Accept-Language header.
func Negotiate(acceptLanguage string, fallback Language) Language {
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// Key identifies one text of the catalog.
type Key int

const (
	MsgSent Key = iota
	MsgValidationFailed
	MsgSpamDetected
	MsgRateLimited
	MsgServerError
	MsgNotFound
	MsgInvalidRequest
	MsgThankYou
	MsgSubmitFailed
	MsgSpamProtectionFailed
	MsgFallbackIntro
	MsgFallbackButton
	MsgFieldRequired
	MsgFieldEmail
	MsgFieldMinLength
	MsgFieldCheckbox
	MsgSending
)

var catalog = map[Key]map[Language]string{
	MsgSent: {
		German:  "Nachricht erfolgreich gesendet",
		English: "Message sent successfully",
	},
	MsgValidationFailed: {
		German:  "Validierungsfehler",
		English: "Validation failed",
	},
	MsgSpamDetected: {
		German:  "Anfrage wurde als Spam erkannt",
		English: "Request was classified as spam",
	},
	MsgRateLimited: {
		German:  "Zu viele Anfragen. Bitte versuchen Sie es später erneut.",
		English: "Too many requests. Please try again later.",
	},
	MsgServerError: {
		German:  "Interner Serverfehler. Bitte versuchen Sie es später erneut.",
		English: "Internal server error. Please try again later.",
	},
	MsgNotFound: {
		German:  "Endpoint nicht gefunden",
		English: "Endpoint not found",
	},
	MsgInvalidRequest: {
		German:  "Ungültige Anfrage",
		English: "Invalid request",
	},
	MsgThankYou: {
		German:  "Vielen Dank! Wir melden uns binnen 24 Stunden bei Ihnen.",
		English: "Thank you! We will get back to you within 24 hours.",
	},
	MsgSubmitFailed: {
		German:  "Entschuldigung, beim Senden ist ein Fehler aufgetreten. Bitte versuchen Sie es erneut oder nutzen Sie unsere E-Mail-Adresse.",
		English: "Sorry, an error occurred while sending. Please try again or use our email address.",
	},
	MsgSpamProtectionFailed: {
		German:  "Spam-Schutz fehlgeschlagen. Bitte versuchen Sie es erneut.",
		English: "Spam protection failed. Please try again.",
	},
	MsgFallbackIntro: {
		German:  "Das Kontaktformular ist momentan nicht verfügbar. Sie können uns direkt eine E-Mail senden:",
		English: "The contact form is currently unavailable. You can send us an email directly:",
	},
	MsgFallbackButton: {
		German:  "E-Mail öffnen",
		English: "Open email",
	},
	MsgFieldRequired: {
		German:  "Dieses Feld ist erforderlich.",
		English: "This field is required.",
	},
	MsgFieldEmail: {
		German:  "Bitte geben Sie eine gültige E-Mail-Adresse ein.",
		English: "Please enter a valid email address.",
	},
	MsgFieldMinLength: {
		German:  "Mindestens %d Zeichen erforderlich.",
		English: "At least %d characters required.",
	},
	MsgFieldCheckbox: {
		German:  "Sie müssen dieser Bedingung zustimmen.",
		English: "You must agree to this condition.",
	},
	MsgSending: {
		German:  "Wird gesendet...",
		English: "Sending...",
	},
}

// T returns the text for key, formatted with args when the text has verbs.
// Unknown languages fall back to German.
func T(lang Language, key Key, args ...any) string {
	texts, ok := catalog[key]
	if !ok {
		return ""
	}
	text, ok := texts[lang]
	if !ok {
		text = texts[German]
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}
