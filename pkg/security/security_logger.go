package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of security event
type EventType string

const (
	EventSpamDetected       EventType = "spam_detected"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventRateLimitDegraded  EventType = "rate_limit_degraded"
	EventValidationFailed   EventType = "validation_failed"
	EventDeliveryFailed     EventType = "delivery_failed"
	EventServerError        EventType = "server_error"
)

// SecurityEvent represents a security-related event to be logged. It never
// carries the submitted message text.
type SecurityEvent struct {
	Timestamp    time.Time              `json:"timestamp"`
	Service      string                 `json:"service"`
	Environment  string                 `json:"env"`
	Level        string                 `json:"level"`
	Event        EventType              `json:"event"`
	SubjectType  string                 `json:"subject_type,omitempty"`  // "email", "ip"
	SubjectValue string                 `json:"subject_value,omitempty"` // Masked or hashed for PII
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SecurityLogger provides structured logging for security events
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// InitSecurityLogger initializes the security logger with Zap
func InitSecurityLogger(serviceName, environment string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"

	// Set output to stdout for container environments
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		// Fallback to a basic logger if config fails
		logger, _ = zap.NewProduction()
	}

	return NewSecurityLogger(logger, serviceName, environment)
}

// NewSecurityLogger wraps an existing zap logger.
func NewSecurityLogger(z *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   z,
		serviceName: serviceName,
		environment: environment,
	}
}

// Log logs a security event
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if sl == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = sl.serviceName
	event.Environment = sl.environment

	level := SeverityFor(event.Event).zapLevel()
	event.Level = level.String()

	fields := []zap.Field{
		zap.String("service", event.Service),
		zap.String("env", event.Environment),
		zap.String("event", string(event.Event)),
		zap.Time("event_time", event.Timestamp),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)
}

// LogSpamDetected records which heuristic rejected a submission. Only the
// address and the trigger are kept.
func (sl *SecurityLogger) LogSpamDetected(ctx context.Context, ip, requestID, reason, detail string) {
	details := map[string]interface{}{"reason": reason}
	if detail != "" {
		details["detail"] = detail
	}
	sl.Log(ctx, SecurityEvent{
		Event:        EventSpamDetected,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		RequestID:    requestID,
		Details:      details,
	})
}

// LogRateLimitTriggered logs when rate limiting is triggered
func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]interface{}{"endpoint": endpoint},
	})
}

// LogRateLimitDegraded logs a failing rate-limit backend.
func (sl *SecurityLogger) LogRateLimitDegraded(ctx context.Context, ip, requestID string, err error) {
	sl.Log(ctx, SecurityEvent{
		Event:       EventRateLimitDegraded,
		SubjectType: "system",
		IP:          ip,
		RequestID:   requestID,
		Details:     map[string]interface{}{"error": err.Error()},
	})
}

// LogValidationFailed logs how many rules a submission broke.
func (sl *SecurityLogger) LogValidationFailed(ctx context.Context, ip, requestID string, violations int) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventValidationFailed,
		IP:        ip,
		RequestID: requestID,
		Details:   map[string]interface{}{"violations": violations},
	})
}

// LogDeliveryFailed logs a mail transport failure.
func (sl *SecurityLogger) LogDeliveryFailed(ctx context.Context, recipient, kind, provider, requestID string, err error) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventDeliveryFailed,
		SubjectType:  "email",
		SubjectValue: MaskEmail(recipient),
		RequestID:    requestID,
		Details: map[string]interface{}{
			"kind":     kind,
			"provider": provider,
			"error":    err.Error(),
		},
	})
}

// LogServerError logs a recovered panic or unexpected error.
func (sl *SecurityLogger) LogServerError(ctx context.Context, ip, requestID, path string, err interface{}) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventServerError,
		IP:        ip,
		RequestID: requestID,
		Details:   map[string]interface{}{"path": path, "error": err},
	})
}

// Sync flushes any buffered log entries
func (sl *SecurityLogger) Sync() error {
	if sl == nil {
		return nil
	}
	return sl.zapLogger.Sync()
}

// --- Helper Functions ---

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIndex := -1
	for i, c := range email {
		if c == '@' {
			atIndex = i
			break
		}
	}
	if atIndex < 0 {
		return HashValue(email)
	}
	if atIndex <= 1 {
		return "***" + email[atIndex:]
	}
	return string(email[0]) + "***" + email[atIndex:]
}

// HashValue creates a SHA256 hash of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

// Environment maps a gin mode to the env label carried by every event.
func Environment(ginMode string) string {
	if ginMode == "release" {
		return "production"
	}
	return "development"
}
