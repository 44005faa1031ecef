package email

import (
	"fmt"

	"erinnerungslicht-backend/config"
)

// ProviderKind names one of the supported mail providers.
type ProviderKind string

const (
	ProviderSMTP     ProviderKind = "smtp"
	ProviderGmail    ProviderKind = "gmail"
	ProviderSendGrid ProviderKind = "sendgrid"
	ProviderSandbox  ProviderKind = "sandbox"
)

const (
	gmailHost    = "smtp.gmail.com"
	gmailPort    = 587
	etherealHost = "smtp.ethereal.email"
	etherealPort = 587
)

// Provider is the resolved transport configuration.
type Provider struct {
	Kind ProviderKind

	// SMTP-based providers
	Host        string
	Port        int
	ImplicitTLS bool
	Username    string
	Password    string

	// HTTP API providers
	APIKey   string
	Endpoint string
}

func (p Provider) String() string {
	switch p.Kind {
	case ProviderSendGrid:
		return fmt.Sprintf("%s(%s)", p.Kind, p.Endpoint)
	default:
		return fmt.Sprintf("%s(%s:%d)", p.Kind, p.Host, p.Port)
	}
}

// IsSandbox reports whether mail goes to the test sandbox instead of real inboxes.
func (p Provider) IsSandbox() bool {
	return p.Kind == ProviderSandbox
}

// SelectProvider picks the first fully configured provider, in priority order:
// custom SMTP, Gmail app password, SendGrid API, Ethereal sandbox. It only
// reads cfg and is meant to be called once at startup.
func SelectProvider(cfg config.MailConfig) Provider {
	switch {
	case cfg.SMTPHost != "":
		port := cfg.SMTPPort
		if port == 0 {
			port = 587
		}
		return Provider{
			Kind:        ProviderSMTP,
			Host:        cfg.SMTPHost,
			Port:        port,
			ImplicitTLS: cfg.SMTPSecure,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
		}
	case cfg.GmailUser != "" && cfg.GmailAppPassword != "":
		return Provider{
			Kind:     ProviderGmail,
			Host:     gmailHost,
			Port:     gmailPort,
			Username: cfg.GmailUser,
			Password: cfg.GmailAppPassword,
		}
	case cfg.SendGridAPIKey != "":
		return Provider{
			Kind:     ProviderSendGrid,
			APIKey:   cfg.SendGridAPIKey,
			Endpoint: cfg.SendGridEndpoint,
		}
	default:
		return Provider{
			Kind:     ProviderSandbox,
			Host:     etherealHost,
			Port:     etherealPort,
			Username: cfg.EtherealUser,
			Password: cfg.EtherealPass,
		}
	}
}
