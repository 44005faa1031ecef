// Package metrics exposes Prometheus instruments for the contact pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeSpam          = "spam"
	OutcomeDeliveryError = "delivery_error"
	OutcomeRateLimited   = "rate_limited"
)

// Metrics holds Prometheus metric descriptors for the contact service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	submissionsTotal *prometheus.CounterVec
	spamTotal        *prometheus.CounterVec
	deliveriesTotal  *prometheus.CounterVec
	sendSeconds      *prometheus.HistogramVec
	queueDepth       prometheus.Gauge
	uptimeSeconds    prometheus.GaugeFunc
}

// New creates the metrics and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New(startTime time.Time) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg, startTime)
}

// NewWithRegistry registers the metrics on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer, startTime time.Time) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact submissions by outcome.",
		}, []string{"outcome"}),
		spamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_spam_rejections_total",
			Help: "Spam rejections by heuristic.",
		}, []string{"reason"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_mail_deliveries_total",
			Help: "Mail delivery attempts by message kind and result.",
		}, []string{"kind", "provider", "result"}),
		sendSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_mail_send_seconds",
			Help:    "Duration of mail delivery attempts.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contact_confirmation_queue_depth",
			Help: "Confirmation emails waiting to be sent.",
		}),
		uptimeSeconds: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "contact_uptime_seconds",
			Help: "Server uptime in seconds.",
		}, func() float64 { return time.Since(startTime).Seconds() }),
	}

	reg.MustRegister(
		m.submissionsTotal,
		m.spamTotal,
		m.deliveriesTotal,
		m.sendSeconds,
		m.queueDepth,
		m.uptimeSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Spam(reason string) {
	if m == nil {
		return
	}
	m.spamTotal.WithLabelValues(reason).Inc()
}

// Delivery records one send attempt.
func (m *Metrics) Delivery(kind, provider string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveriesTotal.WithLabelValues(kind, provider, result).Inc()
	m.sendSeconds.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
