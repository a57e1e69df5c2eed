package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atelier/internal/content"
)

// faultyStore is a content store whose reads can be switched off to simulate
// an unreachable backend.
type faultyStore struct {
	*content.MemoryStore
	failing atomic.Bool
}

func (f *faultyStore) Fetch(ctx context.Context, topic content.Topic, filter content.Filter) ([]content.Entity, error) {
	if f.failing.Load() {
		return nil, errors.New("store unreachable")
	}
	return f.MemoryStore.Fetch(ctx, topic, filter)
}

type ReconcilerSuite struct {
	suite.Suite
	ctx   context.Context
	store *faultyStore
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &faultyStore{MemoryStore: content.NewMemoryStore()}
}

func (s *ReconcilerSuite) seed(topic content.Topic, title string) content.Entity {
	entity, err := s.store.Upsert(s.ctx, content.Entity{
		Topic:   topic,
		Payload: map[string]any{"title": title},
	})
	s.Require().NoError(err)
	return entity
}

func (s *ReconcilerSuite) TestOnSignal() {
	s.Run("populates the view from the store", func() {
		reconciler := NewReconciler(s.store)
		_, ok := reconciler.View(content.TopicProjects)
		s.False(ok)

		s.seed(content.TopicProjects, "alpha")
		s.Require().NoError(reconciler.OnSignal(s.ctx, content.TopicProjects))

		entities, ok := reconciler.View(content.TopicProjects)
		s.True(ok)
		s.Require().Len(entities, 1)
		s.Equal("alpha", entities[0].Payload["title"])
	})

	s.Run("refetch is idempotent", func() {
		reconciler := NewReconciler(s.store)
		s.seed(content.TopicSkills, "go")

		for range 3 {
			s.Require().NoError(reconciler.OnSignal(s.ctx, content.TopicSkills))
		}
		entities, ok := reconciler.View(content.TopicSkills)
		s.True(ok)
		s.Len(entities, 1)
	})

	s.Run("failure keeps the previous view and reports the error", func() {
		var reportedTopic content.Topic
		reconciler := NewReconciler(s.store,
			WithErrorCallback(func(topic content.Topic, err error) {
				reportedTopic = topic
			}),
		)
		s.seed(content.TopicProjects, "stale but consistent")
		s.Require().NoError(reconciler.OnSignal(s.ctx, content.TopicProjects))

		s.store.failing.Store(true)
		defer s.store.failing.Store(false)

		err := reconciler.OnSignal(s.ctx, content.TopicProjects)
		s.Require().Error(err)
		s.Equal(content.TopicProjects, reportedTopic)

		entities, ok := reconciler.View(content.TopicProjects)
		s.True(ok)
		s.Require().Len(entities, 1)
		s.Equal("stale but consistent", entities[0].Payload["title"])
	})
}

func (s *ReconcilerSuite) TestAttach() {
	transport := NewMemoryTransport()
	manager := NewManager(transport, WithReconnectDelay(5*time.Millisecond))
	defer manager.Close()
	defer transport.Close()

	reconciler := NewReconciler(s.store)
	s.seed(content.TopicProjects, "primed")

	handles, err := reconciler.Attach(s.ctx, manager, content.TopicProjects, content.TopicSkills)
	s.Require().NoError(err)
	s.Require().Len(handles, 2)

	s.Run("priming fetch fills every attached topic", func() {
		entities, ok := reconciler.View(content.TopicProjects)
		s.True(ok)
		s.Len(entities, 1)

		entities, ok = reconciler.View(content.TopicSkills)
		s.True(ok)
		s.Empty(entities)
	})

	s.Run("a change signal refreshes the view", func() {
		s.seed(content.TopicProjects, "added later")

		s.Require().NoError(transport.Publish(s.ctx, Envelope{
			EventKind:  EventUpsert,
			Schema:     "public",
			Collection: string(content.TopicProjects),
		}))

		s.Require().Eventually(func() bool {
			entities, _ := reconciler.View(content.TopicProjects)
			return len(entities) == 2
		}, time.Second, 5*time.Millisecond)
	})

	s.Run("a transport drop forces a full refetch", func() {
		s.seed(content.TopicProjects, "written during the gap")

		transport.Drop(content.TopicProjects)

		s.Require().Eventually(func() bool {
			entities, _ := reconciler.View(content.TopicProjects)
			return len(entities) == 3
		}, time.Second, 5*time.Millisecond)
	})

	s.Run("detaching stops refreshes", func() {
		for _, h := range handles {
			manager.Unsubscribe(h)
		}
		s.seed(content.TopicProjects, "never seen")

		s.Require().NoError(transport.Publish(s.ctx, Envelope{
			EventKind:  EventUpsert,
			Schema:     "public",
			Collection: string(content.TopicProjects),
		}))
		time.Sleep(20 * time.Millisecond)

		entities, _ := reconciler.View(content.TopicProjects)
		s.Len(entities, 3)
	})
}

// Concurrent signals and reads must not race; run with -race.
func (s *ReconcilerSuite) TestConcurrentAccess() {
	reconciler := NewReconciler(s.store)
	s.seed(content.TopicProjects, "shared")

	var wg stdsync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reconciler.OnSignal(s.ctx, content.TopicProjects)
		}()
		go func() {
			defer wg.Done()
			_, _ = reconciler.View(content.TopicProjects)
		}()
	}
	wg.Wait()

	entities, ok := reconciler.View(content.TopicProjects)
	s.True(ok)
	s.Len(entities, 1)
}
