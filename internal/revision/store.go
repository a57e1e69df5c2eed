package revision

import "context"

// Store persists revisions. Append-only; no pruning.
type Store interface {
	Append(ctx context.Context, rev Revision) error
	// List returns the newest revisions of one target first, bounded by limit.
	List(ctx context.Context, targetType, targetID string, limit int) ([]Revision, error)
}
