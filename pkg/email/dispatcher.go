package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/security"
)

// DeliveryError wraps a transport failure. Its text is for logs; clients only
// ever see a generic message.
type DeliveryError struct {
	Kind     domain.MailKind
	Provider ProviderKind
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery via %s failed: %v", e.Kind, e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Dispatcher sends messages through one transport, chosen at startup.
type Dispatcher struct {
	provider  Provider
	transport Transport
	timeout   time.Duration
	metrics   *metrics.Metrics
	security  *security.SecurityLogger
	log       *slog.Logger
	queue     *Queue
}

type Option func(*Dispatcher)

// WithTransport replaces the transport derived from the provider.
func WithTransport(t Transport) Option {
	return func(d *Dispatcher) { d.transport = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithSecurityLogger(sl *security.SecurityLogger) Option {
	return func(d *Dispatcher) { d.security = sl }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithQueue routes Enqueue through q. Without a queue every Enqueue runs in
// its own goroutine.
func WithQueue(q *Queue) Option {
	return func(d *Dispatcher) { d.queue = q }
}

func NewDispatcher(p Provider, timeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: p,
		timeout:  timeout,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.transport == nil {
		d.transport = NewTransport(p, nil)
	}
	if d.timeout <= 0 {
		d.timeout = 15 * time.Second
	}
	if d.queue != nil {
		d.queue.bind(d)
	}
	return d
}

// Send delivers msg and waits for the outcome, bounded by the send timeout.
func (d *Dispatcher) Send(ctx context.Context, kind domain.MailKind, msg *domain.MailMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.transport.Send(sendCtx, msg)
	took := time.Since(start)
	d.metrics.Delivery(string(kind), string(d.provider.Kind), err, took)

	requestID := domain.RequestIDFrom(ctx)
	if err != nil {
		d.security.LogDeliveryFailed(ctx, msg.To, string(kind), string(d.provider.Kind), requestID, err)
		d.log.Error("Mail delivery failed",
			"kind", kind,
			"provider", d.provider.Kind,
			"request_id", requestID,
			"duration_ms", took.Milliseconds(),
			"error", err,
		)
		return &DeliveryError{Kind: kind, Provider: d.provider.Kind, Err: err}
	}

	d.log.Info("Mail delivered",
		"kind", kind,
		"provider", d.provider.Kind,
		"request_id", requestID,
		"duration_ms", took.Milliseconds(),
	)
	return nil
}

// Enqueue schedules msg without waiting. The outcome is only logged.
func (d *Dispatcher) Enqueue(ctx context.Context, kind domain.MailKind, msg *domain.MailMessage) {
	j := job{ctx: context.WithoutCancel(ctx), kind: kind, msg: msg}
	if d.queue != nil && d.queue.push(j) {
		return
	}
	go d.run(j)
}

func (d *Dispatcher) run(j job) {
	_ = d.Send(j.ctx, j.kind, j.msg)
}

var _ domain.MailDispatcher = (*Dispatcher)(nil)
