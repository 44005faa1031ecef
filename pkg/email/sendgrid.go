package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"erinnerungslicht-backend/internal/domain"

	"github.com/emersion/go-message/mail"
)

// SendGridTransport posts messages to the SendGrid v3 mail/send API.
type SendGridTransport struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	ReplyTo          *sendGridAddress          `json:"reply_to,omitempty"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func (t *SendGridTransport) Send(ctx context.Context, msg *domain.MailMessage) error {
	payload, err := buildSendGridPayload(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildSendGridPayload(msg *domain.MailMessage) (*sendGridPayload, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	p := &sendGridPayload{
		Personalizations: []sendGridPersonalization{{
			To: []sendGridAddress{{Email: to.Address, Name: to.Name}},
		}},
		From:    sendGridAddress{Email: from.Address, Name: from.Name},
		Subject: singleLine(msg.Subject),
		Content: []sendGridContent{{Type: "text/plain", Value: msg.TextBody}},
	}
	if msg.HTMLBody != "" {
		p.Content = append(p.Content, sendGridContent{Type: "text/html", Value: msg.HTMLBody})
	}
	if msg.ReplyTo != "" {
		if replyTo, err := mail.ParseAddress(msg.ReplyTo); err == nil {
			p.ReplyTo = &sendGridAddress{Email: replyTo.Address, Name: replyTo.Name}
		}
	}
	return p, nil
}
