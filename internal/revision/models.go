// Package revision keeps immutable snapshots of saved content for history
// and undo. Snapshots are full copies, not deltas, written only on explicit
// save actions.
package revision

import (
	"time"

	"github.com/google/uuid"
)

// Revision is one stored snapshot, ordered newest-first on read.
type Revision struct {
	ID         uuid.UUID      `json:"id"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Data       map[string]any `json:"revision_data"`
	Comment    string         `json:"revision_comment,omitempty"`
	AuthorID   string         `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DefaultListLimit bounds the history listing.
const DefaultListLimit = 20
