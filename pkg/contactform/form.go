// Package contactform is the client side of the contact form: it validates
// input locally, guards against double submission and falls back to a
// mailto: link when the endpoint cannot be reached.
package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/spam"
	"erinnerungslicht-backend/pkg/validation"
)

var (
	// ErrSubmitInProgress is returned while another Submit on the same form
	// has not finished.
	ErrSubmitInProgress = errors.New("contactform: submission already in progress")
	// ErrSpamProtection is returned when the client-side honeypot or timing
	// check fails.
	ErrSpamProtection = errors.New("contactform: spam protection failed")
)

// Level is the urgency of an announced message.
type Level string

const (
	LevelStatus Level = "status"
	LevelAlert  Level = "alert"
)

// Announcer receives every user-facing message, e.g. for a screen reader.
type Announcer interface {
	Announce(level Level, message string)
}

type AnnouncerFunc func(level Level, message string)

func (f AnnouncerFunc) Announce(level Level, message string) { f(level, message) }

// Outcome classifies a finished submission.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeFailed   Outcome = "failed"
	OutcomeFallback Outcome = "fallback"
)

// Result describes what the user should be shown after Submit.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Message    string
	// Errors are the server's validation messages, passed through verbatim.
	Errors []string
	// MailtoURL and FallbackLabel are set for OutcomeFallback.
	MailtoURL     string
	FallbackLabel string
}

// FieldErrors maps each invalid field to its inline message.
type FieldErrors map[validation.Field]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, field := range []validation.Field{validation.FieldName, validation.FieldEmail, validation.FieldMessage, validation.FieldPrivacy} {
		if msg, ok := fe[field]; ok {
			parts = append(parts, string(field)+": "+msg)
		}
	}
	return "contactform: invalid fields: " + strings.Join(parts, "; ")
}

// Client talks to one contact endpoint.
type Client struct {
	endpoint        string
	http            *http.Client
	lang            i18n.Language
	fallbackAddress string
	minFill         time.Duration
	announcer       Announcer
	now             func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLanguage(lang i18n.Language) Option {
	return func(c *Client) { c.lang = lang }
}

// WithFallbackAddress sets the recipient of the mailto: fallback.
func WithFallbackAddress(addr string) Option {
	return func(c *Client) { c.fallbackAddress = addr }
}

func WithAnnouncer(a Announcer) Option {
	return func(c *Client) { c.announcer = a }
}

func WithMinFillTime(d time.Duration) Option {
	return func(c *Client) { c.minFill = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for baseURL, e.g. "https://erinnerungslicht.de".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint:        strings.TrimRight(baseURL, "/") + "/api/contact",
		http:            &http.Client{Timeout: 30 * time.Second},
		lang:            i18n.German,
		fallbackAddress: "info@erinnerungslicht.de",
		minFill:         spam.DefaultMinFillTime,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) announce(level Level, message string) {
	if c.announcer != nil {
		c.announcer.Announce(level, message)
	}
}

// Input is what the user typed. Website is the honeypot and stays empty
// unless a bot fills it.
type Input struct {
	Name    string
	Email   string
	Message string
	Privacy bool
	Website string
}

// Form is one rendered contact form. It is safe to Fill while a Submit is
// running; the submission uses the input as it was when Submit started.
type Form struct {
	client *Client

	mu         sync.Mutex
	input      Input
	renderedAt time.Time

	inFlight atomic.Bool
}

// NewForm renders a fresh form and stamps its render time.
func (c *Client) NewForm() *Form {
	return &Form{client: c, renderedAt: c.now()}
}

// Fill replaces the form input.
func (f *Form) Fill(in Input) {
	f.mu.Lock()
	f.input = in
	f.mu.Unlock()
}

// Input returns the current form input.
func (f *Form) Input() Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// RenderedAt is the time the form was rendered or last reset.
func (f *Form) RenderedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderedAt
}

// ReadyAt is the earliest time a submission passes the timing check.
func (f *Form) ReadyAt() time.Time {
	return f.RenderedAt().Add(f.client.minFill)
}

func (f *Form) snapshot() domain.ContactRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.ContactRequest{
		Name:      f.input.Name,
		Email:     f.input.Email,
		Message:   f.input.Message,
		Privacy:   domain.Consent(f.input.Privacy),
		Website:   f.input.Website,
		Timestamp: domain.FromTime(f.renderedAt),
	}
}

func (f *Form) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = Input{}
	f.renderedAt = f.client.now()
}

// Validate runs the field rules and the client-side spam checks. It returns
// FieldErrors, ErrSpamProtection or nil.
func (f *Form) Validate() error {
	return f.validate(f.snapshot())
}

func (f *Form) validate(req domain.ContactRequest) error {
	lang := f.client.lang
	violations := validation.Check(validation.Fields{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Privacy: bool(req.Privacy),
	}, validation.ContactRules)
	if len(violations) > 0 {
		fe := make(FieldErrors, len(violations))
		for _, v := range violations {
			fe[v.Rule.Target()] = validation.Inline(v, lang)
		}
		return fe
	}

	renderedAt, _ := req.Timestamp.Time()
	verdict := spam.Evaluate(spam.Candidate{Honeypot: req.Website, RenderedAt: renderedAt},
		f.client.now(), spam.ClientRules(f.client.minFill))
	if !verdict.Accepted {
		return ErrSpamProtection
	}
	return nil
}

type apiResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Submit validates and posts the form. Invalid input never reaches the
// network. Only one Submit per form runs at a time. A transport failure is
// not an error: it yields OutcomeFallback with a mailto: link.
func (f *Form) Submit(ctx context.Context) (*Result, error) {
	c := f.client
	req := f.snapshot()

	if err := f.validate(req); err != nil {
		if errors.Is(err, ErrSpamProtection) {
			c.announce(LevelAlert, i18n.T(c.lang, i18n.MsgSpamProtectionFailed))
		}
		return nil, err
	}

	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer f.inFlight.Store(false)

	c.announce(LevelStatus, i18n.T(c.lang, i18n.MsgSending))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("contactform: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("contactform: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Language", string(c.lang))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return f.fallback(req), nil
	}
	defer resp.Body.Close()

	var decoded apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && decoded.Success {
		msg := i18n.T(c.lang, i18n.MsgThankYou)
		c.announce(LevelStatus, msg)
		f.reset()
		return &Result{Outcome: OutcomeSent, StatusCode: resp.StatusCode, Message: msg}, nil
	}

	result := &Result{Outcome: OutcomeFailed, StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		result.Message = i18n.T(c.lang, i18n.MsgValidationFailed)
		result.Errors = decoded.Errors
	case http.StatusTooManyRequests:
		result.Message = i18n.T(c.lang, i18n.MsgRateLimited)
	default:
		result.Message = i18n.T(c.lang, i18n.MsgSubmitFailed)
	}
	if msg := c.serverMessage(resp, decoded); msg != "" {
		result.Message = msg
	}
	c.announce(LevelAlert, result.Message)
	return result, nil
}

// serverMessage returns the server's message when it is in the client's
// language, or "".
func (c *Client) serverMessage(resp *http.Response, decoded apiResponse) string {
	if decoded.Message == "" {
		return ""
	}
	lang, ok := i18n.Parse(resp.Header.Get("Content-Language"))
	if !ok || lang != c.lang {
		return ""
	}
	return decoded.Message
}

func (f *Form) fallback(req domain.ContactRequest) *Result {
	c := f.client
	c.announce(LevelAlert, i18n.T(c.lang, i18n.MsgFallbackIntro))
	return &Result{
		Outcome:       OutcomeFallback,
		Message:       i18n.T(c.lang, i18n.MsgFallbackIntro),
		MailtoURL:     MailtoURL(c.fallbackAddress, c.lang, req.Name, req.Email, req.Message),
		FallbackLabel: i18n.T(c.lang, i18n.MsgFallbackButton),
	}
}

// MailtoURL builds the pre-filled mailto: link offered when the endpoint is
// unreachable. Spaces are encoded as %20, not "+".
func MailtoURL(to string, lang i18n.Language, name, email, message string) string {
	subject := "Kontaktanfrage von " + name
	body := fmt.Sprintf("Name: %s\nE-Mail: %s\n\nNachricht:\n%s", name, email, message)
	if lang == i18n.English {
		subject = "Contact request from " + name
		body = fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s", name, email, message)
	}
	return "mailto:" + to + "?subject=" + encodeComponent(subject) + "&body=" + encodeComponent(body)
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
