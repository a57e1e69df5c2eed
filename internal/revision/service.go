package revision

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "atelier/pkg/domain-errors"
)

// Service is the write/read surface for revision history. It clamps list
// limits and stamps ids/timestamps so stores stay dumb.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a revision Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a full snapshot for one target. Called only from explicit
// save actions, never per keystroke.
func (s *Service) Append(ctx context.Context, targetType, targetID string, data map[string]any, comment, authorID string) (Revision, error) {
	if targetType == "" || targetID == "" {
		return Revision{}, dErrors.New(dErrors.CodeBadRequest, "revision target is required")
	}
	if data == nil {
		return Revision{}, dErrors.New(dErrors.CodeBadRequest, "revision data is required")
	}

	rev := Revision{
		ID:         uuid.New(),
		TargetType: targetType,
		TargetID:   targetID,
		Data:       data,
		Comment:    comment,
		AuthorID:   authorID,
		CreatedAt:  s.now(),
	}
	if err := s.store.Append(ctx, rev); err != nil {
		return Revision{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save revision", err)
	}
	return rev, nil
}

// List returns the newest revisions first, clamped to the default limit.
func (s *Service) List(ctx context.Context, targetType, targetID string, limit int) ([]Revision, error) {
	if targetType == "" || targetID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "revision target is required")
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	revs, err := s.store.List(ctx, targetType, targetID, limit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list revisions", err)
	}
	return revs, nil
}
