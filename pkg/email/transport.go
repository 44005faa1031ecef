package email

import (
	"context"
	"net/http"
	"time"

	"erinnerungslicht-backend/internal/domain"
)

// Transport hands one message to an external mail system.
type Transport interface {
	Send(ctx context.Context, msg *domain.MailMessage) error
}

// NewTransport builds the transport for p.
func NewTransport(p Provider, httpClient *http.Client) Transport {
	switch p.Kind {
	case ProviderSendGrid:
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 30 * time.Second}
		}
		return &SendGridTransport{endpoint: p.Endpoint, apiKey: p.APIKey, client: httpClient}
	default:
		return &SMTPTransport{
			host:        p.Host,
			port:        p.Port,
			implicitTLS: p.ImplicitTLS,
			username:    p.Username,
			password:    p.Password,
		}
	}
}
