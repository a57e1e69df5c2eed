package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/pkg/platform/sentinel"
)

// MemoryStore keeps entities in process memory for tests and dev mode.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[Topic]map[uuid.UUID]Entity
	now   func() time.Time
}

// NewMemoryStore constructs an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[Topic]map[uuid.UUID]Entity),
		now:   time.Now,
	}
}

func (s *MemoryStore) Fetch(_ context.Context, topic Topic, filter Filter) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entity
	for _, e := range s.byKey[topic] {
		if filter.Matches(e.Payload) {
			out = append(out, cloneEntity(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, entity Entity) (Entity, error) {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	entity.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byKey[entity.Topic] == nil {
		s.byKey[entity.Topic] = make(map[uuid.UUID]Entity)
	}
	s.byKey[entity.Topic][entity.ID] = cloneEntity(entity)
	return entity, nil
}

func (s *MemoryStore) Delete(_ context.Context, topic Topic, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[topic][id]; !ok {
		return fmt.Errorf("entity %s/%s: %w", topic, id, sentinel.ErrNotFound)
	}
	delete(s.byKey[topic], id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, topic Topic) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey[topic]), nil
}

// cloneEntity copies the payload map so callers cannot mutate stored state
// through the returned slice.
func cloneEntity(e Entity) Entity {
	payload := make(map[string]any, len(e.Payload))
	for k, v := range e.Payload {
		payload[k] = v
	}
	e.Payload = payload
	return e
}
