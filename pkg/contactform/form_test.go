package contactform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type announcements struct {
	mu       sync.Mutex
	messages []string
}

func (a *announcements) Announce(level Level, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, string(level)+":"+message)
}

func filledForm(c *Client) *Form {
	f := c.NewForm()
	f.Fill(Input{
		Name:    "Jo",
		Email:   "jo@example.com",
		Message: "Hello there, I need help.",
		Privacy: true,
	})
	return f
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithHTTPClient(srv.Client()), WithClock(clock.Now)}, opts...)
	return NewClient(srv.URL, opts...), clock
}

func TestValidateFieldErrors(t *testing.T) {
	c := NewClient("http://unused")
	f := c.NewForm()
	f.Fill(Input{Name: "A", Email: "bad-email"})

	err := f.Validate()
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Mindestens 2 Zeichen erforderlich.", fe[validation.FieldName])
	assert.Equal(t, "Bitte geben Sie eine gültige E-Mail-Adresse ein.", fe[validation.FieldEmail])
	assert.Equal(t, "Dieses Feld ist erforderlich.", fe[validation.FieldMessage])
	assert.Equal(t, "Sie müssen dieser Bedingung zustimmen.", fe[validation.FieldPrivacy])
}

func TestValidateClientSpamChecks(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewClient("http://unused", WithClock(clock.Now))

	f := filledForm(c)
	assert.ErrorIs(t, f.Validate(), ErrSpamProtection, "submitted immediately")

	clock.Advance(3 * time.Second)
	assert.NoError(t, f.Validate())

	in := f.Input()
	in.Website = "http://spam.example"
	f.Fill(in)
	assert.ErrorIs(t, f.Validate(), ErrSpamProtection)
}

func TestSubmitInvalidMakesNoRequest(t *testing.T) {
	calls := 0
	c, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	f := c.NewForm()
	clock.Advance(5 * time.Second)

	_, err := f.Submit(context.Background())
	var fe FieldErrors
	assert.ErrorAs(t, err, &fe)
	assert.Zero(t, calls)
}

func TestSubmitSuccessResetsForm(t *testing.T) {
	var got map[string]any
	ann := &announcements{}
	c, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Nachricht erfolgreich gesendet"}`))
	}, WithAnnouncer(ann))

	f := filledForm(c)
	rendered := f.RenderedAt()
	clock.Advance(5 * time.Second)

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, res.Outcome)
	assert.Equal(t, "Vielen Dank! Wir melden uns binnen 24 Stunden bei Ihnen.", res.Message)

	assert.Equal(t, "Jo", got["name"])
	assert.Equal(t, true, got["privacy"])
	assert.Equal(t, "1709294400000", got["timestamp"])
	assert.Equal(t, rendered.UnixMilli(), int64(1709294400000))

	assert.Equal(t, Input{}, f.Input())
	assert.True(t, f.RenderedAt().After(rendered))
	assert.Equal(t, []string{"status:Wird gesendet...", "status:" + res.Message}, ann.messages)
}

func TestSubmitStructuredFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		language string
		body     string
		message  string
		errors   []string
	}{
		{"validation", http.StatusBadRequest, "de", `{"success":false,"message":"Validierungsfehler","errors":["Name ist erforderlich (mindestens 2 Zeichen)"]}`,
			"Validierungsfehler", []string{"Name ist erforderlich (mindestens 2 Zeichen)"}},
		{"rate limited without language", http.StatusTooManyRequests, "", `{"success":false,"message":"Zu viele Anfragen."}`,
			"Zu viele Anfragen. Bitte versuchen Sie es später erneut.", nil},
		{"spam in client language", http.StatusTooManyRequests, "de", `{"success":false,"message":"Anfrage wurde als Spam erkannt"}`,
			"Anfrage wurde als Spam erkannt", nil},
		{"server message in other language", http.StatusTooManyRequests, "en", `{"success":false,"message":"Request was classified as spam"}`,
			"Zu viele Anfragen. Bitte versuchen Sie es später erneut.", nil},
		{"server error without language", http.StatusInternalServerError, "", `{"success":false,"message":"Interner Serverfehler."}`,
			i18n.T(i18n.German, i18n.MsgSubmitFailed), nil},
		{"server error in client language", http.StatusServiceUnavailable, "de", `{"success":false,"message":"Interner Serverfehler. Bitte versuchen Sie es später erneut."}`,
			"Interner Serverfehler. Bitte versuchen Sie es später erneut.", nil},
		{"unsuccessful 200", http.StatusOK, "de", `{"success":false}`, i18n.T(i18n.German, i18n.MsgSubmitFailed), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.language != "" {
					w.Header().Set("Content-Language", tt.language)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			f := filledForm(c)
			clock.Advance(5 * time.Second)

			res, err := f.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.errors, res.Errors)
			assert.Equal(t, "Jo", f.Input().Name, "form is kept on failure")
		})
	}
}

func TestSubmitNetworkFailureFallsBackToMailto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	clock := &fakeClock{now: time.Now()}
	c := NewClient(base, WithClock(clock.Now))
	f := filledForm(c)
	clock.Advance(5 * time.Second)

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.True(t, strings.HasPrefix(res.MailtoURL, "mailto:info@erinnerungslicht.de?subject=Kontaktanfrage%20von%20Jo&body="))
	assert.NotContains(t, res.MailtoURL, "+")
	assert.Equal(t, "E-Mail öffnen", res.FallbackLabel)

	// the in-flight slot is released
	_, err = f.Submit(context.Background())
	assert.NotErrorIs(t, err, ErrSubmitInProgress)
}

func TestSubmitSingleInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	f := filledForm(c)
	clock.Advance(5 * time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	<-entered
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	assert.NoError(t, <-done)
}

func TestFillWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var got map[string]any
	c, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		close(entered)
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	})
	f := filledForm(c)
	clock.Advance(5 * time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	<-entered
	f.Fill(Input{Name: "Kim", Email: "kim@example.com", Message: "Second thoughts, sorry.", Privacy: true})
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "Jo", got["name"], "submission uses the input from when Submit started")
	assert.Equal(t, "Kim", f.Input().Name)
}

func TestMailtoURL(t *testing.T) {
	link := MailtoURL("info@erinnerungslicht.de", i18n.English, "Jo & Co", "jo@example.com", "Hi there\nBye")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "mailto", u.Scheme)
	q := u.Query()
	assert.Equal(t, "Contact request from Jo & Co", q.Get("subject"))
	assert.Equal(t, "Name: Jo & Co\nEmail: jo@example.com\n\nMessage:\nHi there\nBye", q.Get("body"))
	assert.Contains(t, link, "Jo%20%26%20Co")
}
