package content

import (
	"context"

	"github.com/google/uuid"
)

// Error Contract:
// All store methods follow this pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
//
// Each call is a single logical operation against the store; no client-side
// transaction spans multiple calls, and the adapter never retries.
type Store interface {
	// Fetch returns the entities of a topic, newest-first. The filter is
	// optional; pass the zero Filter for everything.
	Fetch(ctx context.Context, topic Topic, filter Filter) ([]Entity, error)
	// Upsert writes one entity and returns the committed row, including the
	// store-assigned UpdatedAt. Last write wins; there is no version token.
	Upsert(ctx context.Context, entity Entity) (Entity, error)
	// Delete removes one entity by id.
	Delete(ctx context.Context, topic Topic, id uuid.UUID) error
	// Count reports how many rows a topic holds, for the sync status surface.
	Count(ctx context.Context, topic Topic) (int, error)
}
