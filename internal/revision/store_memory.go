package revision

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps revisions in memory for tests and dev mode.
type MemoryStore struct {
	mu        sync.RWMutex
	revisions []Revision
}

// NewMemoryStore constructs an empty in-memory revision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rev Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions = append(s.revisions, rev)
	return nil
}

func (s *MemoryStore) List(_ context.Context, targetType, targetID string, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Revision
	for _, rev := range s.revisions {
		if rev.TargetType == targetType && rev.TargetID == targetID {
			out = append(out, rev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
