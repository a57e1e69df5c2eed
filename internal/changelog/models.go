// Package changelog is the append-only audit trail of content mutations.
// Every accepted write gets one record; the append is a separate operation
// from the entity write and is best-effort (see Recorder).
package changelog

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies what kind of edit produced the record.
type ChangeType string

const (
	ChangeContent   ChangeType = "content"
	ChangeStyle     ChangeType = "style"
	ChangeLayout    ChangeType = "layout"
	ChangeSection   ChangeType = "section"
	ChangeForceSync ChangeType = "force_sync"
)

// Record is one audit entry. Records are never mutated or deleted except by
// the explicit bulk Clear.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	ChangeType ChangeType     `json:"change_type"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DefaultListLimit bounds the admin log listing.
const DefaultListLimit = 50
