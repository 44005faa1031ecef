package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"erinnerungslicht-backend/config"
	"erinnerungslicht-backend/internal/delivery/http/response"
	v1 "erinnerungslicht-backend/internal/delivery/http/v1"
	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/internal/usecase"
	"erinnerungslicht-backend/pkg/email"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/ratelimit"
	"erinnerungslicht-backend/pkg/spam"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMailer struct {
	mu      sync.Mutex
	sent    []*domain.MailMessage
	queued  []*domain.MailMessage
	sendErr error
}

func (m *recordingMailer) Send(_ context.Context, _ domain.MailKind, msg *domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Enqueue(_ context.Context, _ domain.MailKind, msg *domain.MailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, msg)
}

func (m *recordingMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type limiterFunc func(ctx context.Context, key string) (ratelimit.Decision, error)

func (f limiterFunc) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	return f(ctx, key)
}

type testServer struct {
	router *gin.Engine
	mailer *recordingMailer
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                   "3000",
		GinMode:                "test",
		AllowedOrigins:         []string{"https://erinnerungslicht.de"},
		SiteName:               "Erinnerungslicht",
		SiteURL:                "https://erinnerungslicht.de",
		DefaultLanguage:        "de",
		MaxBodyBytes:           64 * 1024,
		MetricsEnabled:         true,
		ContactRateLimitMax:    5,
		ContactRateLimitWindow: 15 * time.Minute,
		SpamMinFillTime:        3 * time.Second,
		Mail: config.MailConfig{
			FromEmail: "noreply@erinnerungslicht.de",
			ToEmail:   "info@erinnerungslicht.de",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, limiter ratelimit.Limiter) *testServer {
	t.Helper()
	if limiter == nil {
		limiter = ratelimit.NewMemory(cfg.ContactRateLimitMax, cfg.ContactRateLimitWindow)
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg, time.Now())
	mailer := &recordingMailer{}

	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Filter: spam.NewFilter(cfg.SpamMinFillTime, cfg.SpamKeywords),
		Composer: &email.Composer{
			From:     cfg.Mail.FromEmail,
			To:       cfg.Mail.ToEmail,
			SiteName: cfg.SiteName,
			SiteURL:  cfg.SiteURL,
		},
		Mailer:  mailer,
		Metrics: m,
	})

	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  usecase.NewHealthUsecase(time.Now()),
		Limiter:   limiter,
		Metrics:   m,
		Config:    cfg,
	})
	return &testServer{router: router, mailer: mailer}
}

func (s *testServer) post(t *testing.T, body any, headers ...string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:40000"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func validPayload() map[string]any {
	return map[string]any{
		"name":      "Jo",
		"email":     "jo@example.com",
		"message":   "Hello there, I need help.",
		"privacy":   true,
		"website":   "",
		"timestamp": strconv.FormatInt(time.Now().Add(-5*time.Second).UnixMilli(), 10),
	}
}

func TestSubmitContactAccepted(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w, resp := s.post(t, validPayload())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Nachricht erfolgreich gesendet", resp.Message)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, 1, s.mailer.sentCount())
	assert.Equal(t, "Kontaktanfrage von Jo", s.mailer.sent[0].Subject)
	assert.Contains(t, s.mailer.sent[0].TextBody, "IP-Adresse: 203.0.113.7")
}

func TestSubmitContactValidationErrors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w, resp := s.post(t, map[string]any{
		"name":    "A",
		"email":   "bad-email",
		"message": "short",
		"privacy": false,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Validierungsfehler", resp.Message)
	assert.Len(t, resp.Errors, 4)
	assert.Zero(t, s.mailer.sentCount())
}

func TestSubmitContactEnglish(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w, resp := s.post(t, map[string]any{"name": "A"}, "Accept-Language", "en-US,en;q=0.9")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Contains(t, resp.Errors, "A valid email address is required")
	assert.Equal(t, "en", w.Header().Get("Content-Language"))
}

func TestSubmitContactHoneypot(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	payload := validPayload()
	payload["website"] = "http://spam.example"

	w, resp := s.post(t, payload)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Anfrage wurde als Spam erkannt", resp.Message)
	assert.NotContains(t, w.Body.String(), "honeypot")
	assert.Zero(t, s.mailer.sentCount())
}

func TestSubmitContactRateLimited(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	for i := 0; i < 5; i++ {
		w, _ := s.post(t, validPayload())
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	// invalid body proves validation is never reached
	w, resp := s.post(t, map[string]any{"name": "A"})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Zu viele Anfragen. Bitte versuchen Sie es später erneut.", resp.Message)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 5, s.mailer.sentCount())
}

func TestSubmitContactLimiterUnavailable(t *testing.T) {
	limiter := limiterFunc(func(context.Context, string) (ratelimit.Decision, error) {
		return ratelimit.Decision{}, ratelimit.ErrUnavailable
	})
	s := newTestServer(t, testConfig(), limiter)

	w, resp := s.post(t, validPayload())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Interner Serverfehler. Bitte versuchen Sie es später erneut.", resp.Message)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.Zero(t, s.mailer.sentCount())
}

func TestSubmitContactTransportFailure(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	s.mailer.sendErr = &email.DeliveryError{
		Kind:     domain.MailNotification,
		Provider: email.ProviderSMTP,
		Err:      errors.New("dial tcp 10.0.0.1:587: connection refused"),
	}

	w, resp := s.post(t, validPayload())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Interner Serverfehler. Bitte versuchen Sie es später erneut.", resp.Message)
	assert.NotContains(t, w.Body.String(), "dial tcp")
	assert.NotContains(t, w.Body.String(), "smtp")
}

func TestSubmitContactMalformedBody(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w, resp := s.post(t, `{"name": "Jo",`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestSubmitContactBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 1024
	s := newTestServer(t, cfg, nil)

	payload := validPayload()
	payload["message"] = strings.Repeat("x", 4096)
	w, _ := s.post(t, payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, s.mailer.sentCount())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "uptime")
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Endpoint nicht gefunden", resp.Message)
}

func TestStaticSite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Erinnerungslicht</h1>"), 0o644))
	cfg := testConfig()
	cfg.StaticDir = dir
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Erinnerungslicht")

	req = httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://erinnerungslicht.de")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "https://erinnerungslicht.de", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Zero(t, s.mailer.sentCount())

	// browsers send the header list lower-cased
	req = httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://erinnerungslicht.de")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,accept-language")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "https://erinnerungslicht.de", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	s.post(t, validPayload())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contact_submissions_total{outcome="accepted"} 1`)
}
