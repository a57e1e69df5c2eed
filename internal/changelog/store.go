package changelog

import "context"

// Store persists change records. Append-only apart from Clear.
type Store interface {
	Append(ctx context.Context, record Record) error
	// ListRecent returns the newest records first, bounded by limit.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	// Clear removes every record. Exposed for the admin log's bulk-clear.
	Clear(ctx context.Context) error
}
