package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"atelier/internal/content"
	"atelier/internal/platform/metrics"
)

// Reconciler is the only consistency mechanism in the system. On every
// signal it re-derives the full authoritative state of the affected topic
// and atomically replaces the cached view. Pull-based refetch is idempotent
// by construction, so duplicate or out-of-order delivery is harmless.
type Reconciler struct {
	store   content.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	onError func(topic content.Topic, err error)

	mu    stdsync.RWMutex
	cache map[content.Topic][]content.Entity
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger overrides the default logger.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// WithReconcilerMetrics wires the shared metrics registry.
func WithReconcilerMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

// WithErrorCallback reports reconciliation failures to the UI layer (toast
// equivalent). The prior cached state stays intact on failure.
func WithErrorCallback(fn func(topic content.Topic, err error)) ReconcilerOption {
	return func(r *Reconciler) { r.onError = fn }
}

// NewReconciler constructs a Reconciler over the authoritative store.
func NewReconciler(store content.Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:  store,
		logger: slog.Default(),
		cache:  make(map[content.Topic][]content.Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnSignal refetches one topic and replaces its cached view. On failure the
// previous cache survives: stale-but-consistent, never partially
// overwritten. There is no automatic retry; the next signal tries again.
func (r *Reconciler) OnSignal(ctx context.Context, topic content.Topic) error {
	entities, err := r.store.Fetch(ctx, topic, content.Filter{})
	if err != nil {
		r.logger.WarnContext(ctx, "reconciliation fetch failed, keeping cached view",
			"topic", string(topic),
			"error", err.Error(),
		)
		if r.metrics != nil {
			r.metrics.ReconcileFailures.WithLabelValues(string(topic)).Inc()
		}
		if r.onError != nil {
			r.onError(topic, err)
		}
		return err
	}

	r.mu.Lock()
	r.cache[topic] = entities
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Reconciliations.WithLabelValues(string(topic)).Inc()
	}
	return nil
}

// View returns the cached entities for a topic and whether a reconciliation
// has populated it yet. The slice is shared; callers must not mutate it.
func (r *Reconciler) View(topic content.Topic) ([]content.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities, ok := r.cache[topic]
	return entities, ok
}

// Attach subscribes the reconciler to the given topics, priming each cache
// with an initial fetch. The returned handles tear the subscriptions down.
func (r *Reconciler) Attach(ctx context.Context, manager *Manager, topics ...content.Topic) ([]Handle, error) {
	handles := make([]Handle, 0, len(topics))
	for _, topic := range topics {
		topic := topic
		handle, err := manager.Subscribe(topic, nil, func(Envelope) {
			// The envelope payload is untrusted; the only signal used is
			// "topic changed".
			_ = r.OnSignal(context.Background(), topic)
		})
		if err != nil {
			for _, h := range handles {
				manager.Unsubscribe(h)
			}
			return nil, err
		}
		handles = append(handles, handle)
		_ = r.OnSignal(ctx, topic)
	}
	return handles, nil
}
