package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ContactRequest represents a contact form submission as sent over the wire
type ContactRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Message string  `json:"message"`
	Privacy Consent `json:"privacy"`
	// Website is the honeypot field; humans never see it
	Website   string      `json:"website,omitempty"`
	Timestamp EpochMillis `json:"timestamp,omitempty"`
}

// Consent accepts a JSON boolean as well as the string values an HTML checkbox
// produces ("on", "true", "1").
type Consent bool

func (c *Consent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = false
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "1", "yes":
			*c = true
		default:
			*c = false
		}
		return nil
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = Consent(b)
		return nil
	}
}

// EpochMillis is a client timestamp in milliseconds since the Unix epoch.
// Zero means "not provided". Both JSON strings and numbers are accepted; a
// value that is not a number is treated as absent.
type EpochMillis int64

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*e = EpochMillis(ms)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*e = EpochMillis(int64(f))
		return nil
	}
	*e = 0
	return nil
}

func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(e), 10))
}

// Time converts the timestamp; ok is false when no timestamp was provided.
func (e EpochMillis) Time() (time.Time, bool) {
	if e <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(e)), true
}

// FromTime stamps a timestamp the way a browser's Date.now() would.
func FromTime(t time.Time) EpochMillis {
	return EpochMillis(t.UnixMilli())
}

// Submission is one contact-form payload together with the request metadata.
// It lives for a single request and is never persisted.
type Submission struct {
	Name            string
	Email           string
	Message         string
	PrivacyAccepted bool
	HoneypotValue   string
	SubmittedAt     EpochMillis

	ClientIP   string
	UserAgent  string
	RequestID  string
	Language   string
	ReceivedAt time.Time
}

// ToSubmission copies the wire fields; metadata is filled in by the caller.
func (r *ContactRequest) ToSubmission() *Submission {
	return &Submission{
		Name:            r.Name,
		Email:           r.Email,
		Message:         r.Message,
		PrivacyAccepted: bool(r.Privacy),
		HoneypotValue:   r.Website,
		SubmittedAt:     r.Timestamp,
	}
}

// MailMessage is one outgoing email.
type MailMessage struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// MailKind distinguishes the two messages an accepted submission may produce.
type MailKind string

const (
	MailNotification MailKind = "notification"
	MailConfirmation MailKind = "confirmation"
)

// MailDispatcher hands messages to the configured mail transport.
type MailDispatcher interface {
	// Send blocks until the transport accepted or rejected the message.
	Send(ctx context.Context, kind MailKind, msg *MailMessage) error
	// Enqueue schedules a send without waiting for its outcome. The send
	// outlives ctx but keeps its values.
	Enqueue(ctx context.Context, kind MailKind, msg *MailMessage)
}

// ContactResult is returned for an accepted submission.
type ContactResult struct {
	ReferenceID        string
	ConfirmationQueued bool
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// Submit runs validation, spam checks and mail dispatch for one submission
	Submit(ctx context.Context, sub *Submission) (*ContactResult, error)
}
