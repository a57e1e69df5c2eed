package changelog

import (
	"context"
	"log/slog"
	"time"

	"atelier/internal/platform/metrics"
)

// Sink receives accepted change records for downstream consumers (e.g. the
// Kafka pipeline). Publishing is best-effort; the store remains the source
// of truth for the log itself.
type Sink interface {
	Publish(ctx context.Context, record Record) error
}

type job struct {
	record  Record
	persist bool
}

// Outbox narrows the gap between a committed entity write and a failed
// change-record append: failed appends are queued and retried with backoff
// until they stick. It also fans accepted records out to an optional sink.
// The queue is in-process, so records are lost if the process dies with a
// non-empty queue; that residual gap is deliberate and monitored via the
// outbox metrics.
type Outbox struct {
	store   Store
	sink    Sink
	inbox   chan job
	backoff time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxLogger overrides the default logger.
func WithOutboxLogger(logger *slog.Logger) OutboxOption {
	return func(o *Outbox) { o.logger = logger }
}

// WithOutboxMetrics wires the shared metrics registry.
func WithOutboxMetrics(m *metrics.Metrics) OutboxOption {
	return func(o *Outbox) { o.metrics = m }
}

// WithSink attaches a downstream publisher for accepted records.
func WithSink(sink Sink) OutboxOption {
	return func(o *Outbox) { o.sink = sink }
}

// NewOutbox constructs the retry worker. buffer bounds the queue; a full
// queue drops the oldest-failing record rather than blocking a request.
func NewOutbox(store Store, buffer int, backoff time.Duration, opts ...OutboxOption) *Outbox {
	if buffer <= 0 {
		buffer = 256
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	o := &Outbox{
		store:   store,
		inbox:   make(chan job, buffer),
		backoff: backoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Retry queues a record whose append failed. Non-blocking.
func (o *Outbox) Retry(record Record) {
	o.enqueue(job{record: record, persist: true})
}

// Publish queues a successfully appended record for sink fan-out. No-op
// without a sink. Non-blocking.
func (o *Outbox) Publish(record Record) {
	if o.sink == nil {
		return
	}
	o.enqueue(job{record: record})
}

func (o *Outbox) enqueue(j job) {
	select {
	case o.inbox <- j:
		if o.metrics != nil {
			o.metrics.OutboxDepth.Set(float64(len(o.inbox)))
		}
	default:
		o.logger.Error("outbox full, dropping change record",
			"record_id", j.record.ID.String(),
			"persist", j.persist,
		)
	}
}

// Run consumes the queue until ctx is canceled. Persist jobs retry with
// linear backoff until they succeed; sink publishes are attempted once.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-o.inbox:
			if o.metrics != nil {
				o.metrics.OutboxDepth.Set(float64(len(o.inbox)))
			}
			if j.persist {
				if !o.persistWithRetry(ctx, j.record) {
					return ctx.Err()
				}
			}
			if o.sink != nil {
				if err := o.sink.Publish(ctx, j.record); err != nil {
					o.logger.WarnContext(ctx, "change record sink publish failed",
						"record_id", j.record.ID.String(),
						"error", err.Error(),
					)
				}
			}
		}
	}
}

// persistWithRetry blocks until the append succeeds or ctx is canceled.
// Returns false only on cancellation.
func (o *Outbox) persistWithRetry(ctx context.Context, record Record) bool {
	for attempt := 1; ; attempt++ {
		err := o.store.Append(ctx, record)
		if err == nil {
			if attempt > 1 {
				o.logger.InfoContext(ctx, "change record recovered by outbox",
					"record_id", record.ID.String(),
					"attempts", attempt,
				)
			}
			return true
		}

		if o.metrics != nil {
			o.metrics.OutboxRetries.Inc()
		}
		o.logger.WarnContext(ctx, "outbox retry failed",
			"record_id", record.ID.String(),
			"attempt", attempt,
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * o.backoff):
		}
	}
}
