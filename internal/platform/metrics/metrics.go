package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A single struct
// keeps registration in one place and makes wiring explicit in main.
type Metrics struct {
	Mutations           *prometheus.CounterVec
	MutationFailures    *prometheus.CounterVec
	AuditWriteFailures  prometheus.Counter
	OutboxRetries       prometheus.Counter
	OutboxDepth         prometheus.Gauge
	SignalsPublished    *prometheus.CounterVec
	SignalsDispatched   *prometheus.CounterVec
	Reconciliations     *prometheus.CounterVec
	ReconcileFailures   *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ActiveSubscriptions prometheus.Gauge
	TransportReconnects prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_content_mutations_total",
			Help: "Content entity writes accepted by the gate, by topic and operation",
		}, []string{"topic", "op"}),
		MutationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_content_mutation_failures_total",
			Help: "Content entity writes rejected or failed, by topic and stage",
		}, []string{"topic", "stage"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_audit_write_failures_total",
			Help: "Change-record appends that failed after a committed entity write",
		}),
		OutboxRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_outbox_retries_total",
			Help: "Retried change-record appends performed by the outbox worker",
		}),
		OutboxDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "atelier_outbox_depth",
			Help: "Change records currently queued for retry",
		}),
		SignalsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_sync_signals_published_total",
			Help: "Change signals published to the notification transport, by topic",
		}, []string{"topic"}),
		SignalsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_sync_signals_dispatched_total",
			Help: "Change signals dispatched to subscribed handlers, by topic",
		}, []string{"topic"}),
		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_reconciliations_total",
			Help: "Full-state reconciliation fetches, by topic",
		}, []string{"topic"}),
		ReconcileFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_reconciliation_failures_total",
			Help: "Reconciliation fetches that failed and left cached state intact",
		}, []string{"topic"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atelier_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		ActiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "atelier_sync_active_subscriptions",
			Help: "Handlers currently registered with the subscription manager",
		}),
		TransportReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_sync_transport_reconnects_total",
			Help: "Transport channel drops that triggered a resubscribe",
		}),
	}
}
