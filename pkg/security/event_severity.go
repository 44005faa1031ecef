package security

import "go.uber.org/zap/zapcore"

// Severity represents the severity level of a security event
// This is derived from EventType, NOT user-provided
type Severity string

const (
	SeverityINFO Severity = "INFO"
	SeverityWARN Severity = "WARN"
	SeverityHIGH Severity = "HIGH"
)

// SeverityFor maps an event type to its severity.
func SeverityFor(event EventType) Severity {
	switch event {
	case EventValidationFailed:
		return SeverityINFO
	case EventSpamDetected, EventRateLimitTriggered, EventRateLimitDegraded:
		return SeverityWARN
	case EventDeliveryFailed, EventServerError:
		return SeverityHIGH
	default:
		return SeverityWARN
	}
}

func (s Severity) zapLevel() zapcore.Level {
	switch s {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityHIGH:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}
