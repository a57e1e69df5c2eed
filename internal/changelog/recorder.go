package changelog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atelier/internal/platform/metrics"
)

// Recorder appends one audit record per accepted mutation. The append is a
// separate operation from the entity write: when it fails the entity write
// has already committed, so the failure is logged, counted, and handed to
// the outbox worker for retry instead of rolled back.
type Recorder struct {
	store   Store
	outbox  *Outbox
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics wires the shared metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithOutbox attaches the retry worker for failed appends and sink fan-out.
func WithOutbox(outbox *Outbox) Option {
	return func(r *Recorder) { r.outbox = outbox }
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one audit entry. Callers invoke it immediately after a
// successful upsert or delete; the returned error is informational and must
// never unwind the committed entity write.
func (r *Recorder) Record(ctx context.Context, changeType ChangeType, targetType, targetID string, oldValue, newValue map[string]any) error {
	record := Record{
		ID:         uuid.New(),
		ChangeType: changeType,
		TargetType: targetType,
		TargetID:   targetID,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  r.now(),
	}

	if err := r.store.Append(ctx, record); err != nil {
		r.logger.WarnContext(ctx, "change record append failed",
			"change_type", string(changeType),
			"target_type", targetType,
			"target_id", targetID,
			"error", err.Error(),
		)
		if r.metrics != nil {
			r.metrics.AuditWriteFailures.Inc()
		}
		if r.outbox != nil {
			r.outbox.Retry(record)
		}
		return err
	}

	if r.outbox != nil {
		r.outbox.Publish(record)
	}
	return nil
}

// ListRecent exposes the bounded newest-first read surface of the log.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return r.store.ListRecent(ctx, limit)
}

// Clear drops the whole log. Only the admin bulk-clear calls this.
func (r *Recorder) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}
