package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"erinnerungslicht-backend/internal/domain"

	"github.com/emersion/go-message/mail"
)

// ErrAuthUnsupported is returned when credentials are configured but the
// server does not offer AUTH.
var ErrAuthUnsupported = errors.New("smtp: server does not support AUTH")

// SMTPTransport delivers through an SMTP server. It upgrades with STARTTLS
// when the server offers it and authenticates when credentials are set.
type SMTPTransport struct {
	host        string
	port        int
	implicitTLS bool
	username    string
	password    string
	// tlsConfig overrides the default TLS settings, for tests
	tlsConfig *tls.Config
}

func (t *SMTPTransport) Send(ctx context.Context, msg *domain.MailMessage) error {
	raw, err := Compose(msg, time.Now())
	if err != nil {
		return err
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	// closing the connection unblocks any pending read when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !t.implicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.tls()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if t.username != "" && t.password != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return ErrAuthUnsupported
		}
		if err := client.Auth(smtp.PlainAuth("", t.username, t.password, t.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(envelopeAddress(msg.From)); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(envelopeAddress(msg.To)); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if t.implicitTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tls()}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func (t *SMTPTransport) tls() *tls.Config {
	if t.tlsConfig != nil {
		return t.tlsConfig
	}
	return &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}
}

// envelopeAddress strips a display name: "Site <a@b.de>" becomes "a@b.de".
func envelopeAddress(addr string) string {
	if parsed, err := mail.ParseAddress(addr); err == nil {
		return parsed.Address
	}
	return strings.TrimSpace(addr)
}

// Compose renders msg as a multipart/alternative RFC 5322 message.
func Compose(msg *domain.MailMessage, now time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	if msg.ReplyTo != "" {
		// a bad reply-to must not stop the message
		if replyTo, err := mail.ParseAddress(msg.ReplyTo); err == nil {
			h.SetAddressList("Reply-To", []*mail.Address{replyTo})
		}
	}
	h.SetSubject(singleLine(msg.Subject))
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	if err := writePart(w, "text/plain", msg.TextBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writePart(w, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(w *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return pw.Close()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
