package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atelier/internal/changelog"
	"atelier/internal/gate"
	"atelier/internal/platform/metrics"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/sentinel"
)

// Event kinds announced to the notifier. They mirror the sync package's
// envelope kinds; the service deliberately knows only the strings so the
// dependency points one way.
const (
	eventUpsert    = "upsert"
	eventDelete    = "delete"
	eventForceSync = "force_sync"
)

// Notifier announces committed writes to the change-notification transport.
type Notifier interface {
	ContentChanged(ctx context.Context, topic Topic, eventKind string, payload map[string]any) error
}

// Service is the single writer over the content store. Every mutation runs
// the gate exactly once, commits through the adapter, then best-effort
// appends a change record and announces the commit. The record and the
// announcement are separate operations from the write: their failures are
// logged and counted but never unwind the committed row.
type Service struct {
	store    Store
	changes  *changelog.Recorder
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics wires the shared metrics registry.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier attaches the change-signal publisher.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService constructs the content Service.
func NewService(store Store, changes *changelog.Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		changes: changes,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the entities of a topic, optionally filtered.
func (s *Service) Fetch(ctx context.Context, topic Topic, filter Filter) ([]Entity, error) {
	entities, err := s.store.Fetch(ctx, topic, filter)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to fetch content", err)
	}
	return entities, nil
}

// Upsert validates and commits one entity. A nil id creates; an existing id
// replaces the whole payload (last write wins, no version token).
// Validation failures return gate.Errors and never reach the store.
func (s *Service) Upsert(ctx context.Context, topic Topic, id uuid.UUID, payload map[string]any) (Entity, error) {
	oldValue := s.lookupPayload(ctx, topic, id)

	var committed Entity
	err := gate.Submit(ctx, payload, Schema(topic), func(ctx context.Context, sanitized map[string]any) error {
		entity, err := s.store.Upsert(ctx, Entity{ID: id, Topic: topic, Payload: sanitized})
		if err != nil {
			return err
		}
		committed = entity
		return nil
	})
	if err != nil {
		var verrs gate.Errors
		if errors.As(err, &verrs) {
			s.countFailure(topic, "validation")
			return Entity{}, verrs
		}
		s.countFailure(topic, "store")
		return Entity{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save content", err)
	}

	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(string(topic), "upsert").Inc()
	}

	// Best-effort from here on: the entity write has committed.
	_ = s.changes.Record(ctx, changeTypeFor(topic), string(topic), committed.ID.String(), oldValue, committed.Payload)
	s.announce(ctx, topic, eventUpsert, committed.Payload)

	return committed, nil
}

// Delete removes one entity and audits the removal.
func (s *Service) Delete(ctx context.Context, topic Topic, id uuid.UUID) error {
	oldValue := s.lookupPayload(ctx, topic, id)

	if err := s.store.Delete(ctx, topic, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeNotFound, "content entity not found", err)
		}
		s.countFailure(topic, "store")
		return dErrors.Wrap(dErrors.CodeInternal, "failed to delete content", err)
	}

	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(string(topic), "delete").Inc()
	}

	_ = s.changes.Record(ctx, changeTypeFor(topic), string(topic), id.String(), oldValue, nil)
	s.announce(ctx, topic, eventDelete, map[string]any{"id": id.String()})

	return nil
}

// Status reports per-topic row counts for the sync status panel.
type Status struct {
	LastSync time.Time     `json:"last_sync"`
	Counts   map[Topic]int `json:"counts"`
	State    string        `json:"sync_status"`
}

// Status counts every topic in one pass. A single failing count degrades
// the whole report to the error state rather than lying with partial data.
func (s *Service) Status(ctx context.Context) (Status, error) {
	status := Status{Counts: make(map[Topic]int, len(allTopics)), State: "synced"}
	for _, topic := range allTopics {
		n, err := s.store.Count(ctx, topic)
		if err != nil {
			status.State = "error"
			return status, dErrors.Wrap(dErrors.CodeInternal, "failed to count "+string(topic), err)
		}
		status.Counts[topic] = n
	}
	status.LastSync = s.now()
	return status, nil
}

// ForceSync writes a force_sync audit record and signals every topic so all
// consumers re-derive their state.
func (s *Service) ForceSync(ctx context.Context) error {
	_ = s.changes.Record(ctx, changelog.ChangeForceSync, "website", "global", nil, map[string]any{
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	for _, topic := range allTopics {
		s.announce(ctx, topic, eventForceSync, nil)
	}
	return nil
}

// lookupPayload fetches the current payload of an entity for the audit
// trail's old value. Best-effort: a miss just records no old value.
func (s *Service) lookupPayload(ctx context.Context, topic Topic, id uuid.UUID) map[string]any {
	if id == uuid.Nil {
		return nil
	}
	entities, err := s.store.Fetch(ctx, topic, Filter{})
	if err != nil {
		return nil
	}
	for _, e := range entities {
		if e.ID == id {
			return e.Payload
		}
	}
	return nil
}

func (s *Service) announce(ctx context.Context, topic Topic, eventKind string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ContentChanged(ctx, topic, eventKind, payload); err != nil {
		s.logger.WarnContext(ctx, "change signal publish failed",
			"topic", string(topic),
			"event_kind", eventKind,
			"error", err.Error(),
		)
		s.countFailure(topic, "notify")
	}
}

func (s *Service) countFailure(topic Topic, stage string) {
	if s.metrics != nil {
		s.metrics.MutationFailures.WithLabelValues(string(topic), stage).Inc()
	}
}

// changeTypeFor maps a topic to the audit classification the admin log
// renders: theme edits are style, section edits are section, site config is
// layout, everything else is content.
func changeTypeFor(topic Topic) changelog.ChangeType {
	switch topic {
	case TopicTheme:
		return changelog.ChangeStyle
	case TopicSections:
		return changelog.ChangeSection
	case TopicConfig:
		return changelog.ChangeLayout
	default:
		return changelog.ChangeContent
	}
}
