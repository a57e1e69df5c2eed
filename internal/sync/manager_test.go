package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atelier/internal/content"
	"atelier/pkg/platform/sentinel"
)

// envelopeRecorder collects dispatched envelopes behind a mutex so assertions
// can run while pumps are live.
type envelopeRecorder struct {
	mu        stdsync.Mutex
	envelopes []Envelope
}

func (r *envelopeRecorder) handler() Handler {
	return func(env Envelope) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.envelopes = append(r.envelopes, env)
	}
}

func (r *envelopeRecorder) seen() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.envelopes))
	copy(out, r.envelopes)
	return out
}

func (r *envelopeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envelopes)
}

type ManagerSuite struct {
	suite.Suite
	transport *MemoryTransport
	manager   *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.transport = NewMemoryTransport()
	s.manager = NewManager(s.transport, WithReconnectDelay(5*time.Millisecond))
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Close()
	s.transport.Close()
}

func (s *ManagerSuite) publish(topic content.Topic, kind string) {
	s.Require().NoError(s.transport.Publish(context.Background(), Envelope{
		EventKind:  kind,
		Schema:     "public",
		Collection: string(topic),
	}))
}

func (s *ManagerSuite) TestSubscribe() {
	s.Run("nil handler is rejected", func() {
		_, err := s.manager.Subscribe(content.TopicProjects, nil, nil)
		s.Require().Error(err)
	})

	s.Run("each handler on a topic sees each signal once", func() {
		first := &envelopeRecorder{}
		second := &envelopeRecorder{}
		h1, err := s.manager.Subscribe(content.TopicProjects, nil, first.handler())
		s.Require().NoError(err)
		h2, err := s.manager.Subscribe(content.TopicProjects, nil, second.handler())
		s.Require().NoError(err)
		defer s.manager.Unsubscribe(h1)
		defer s.manager.Unsubscribe(h2)

		// Two handlers share one transport channel.
		s.Equal(1, s.transport.SubscriberCount(content.TopicProjects))

		s.publish(content.TopicProjects, EventUpsert)

		s.Require().Eventually(func() bool {
			return first.count() == 1 && second.count() == 1
		}, time.Second, 5*time.Millisecond)
		s.Equal(EventUpsert, first.seen()[0].EventKind)
	})

	s.Run("topics are isolated", func() {
		projects := &envelopeRecorder{}
		skills := &envelopeRecorder{}
		h1, err := s.manager.Subscribe(content.TopicProjects, nil, projects.handler())
		s.Require().NoError(err)
		h2, err := s.manager.Subscribe(content.TopicSkills, nil, skills.handler())
		s.Require().NoError(err)
		defer s.manager.Unsubscribe(h1)
		defer s.manager.Unsubscribe(h2)

		s.publish(content.TopicSkills, EventUpsert)

		s.Require().Eventually(func() bool {
			return skills.count() == 1
		}, time.Second, 5*time.Millisecond)
		s.Equal(0, projects.count())
	})
}

func (s *ManagerSuite) TestPredicate() {
	deletesOnly := &envelopeRecorder{}
	handle, err := s.manager.Subscribe(content.TopicProjects,
		func(env Envelope) bool { return env.EventKind == EventDelete },
		deletesOnly.handler())
	s.Require().NoError(err)
	defer s.manager.Unsubscribe(handle)

	s.publish(content.TopicProjects, EventUpsert)
	s.publish(content.TopicProjects, EventDelete)

	s.Require().Eventually(func() bool {
		return deletesOnly.count() == 1
	}, time.Second, 5*time.Millisecond)
	s.Equal(EventDelete, deletesOnly.seen()[0].EventKind)
}

func (s *ManagerSuite) TestUnsubscribe() {
	s.Run("stops delivery for that handler only", func() {
		kept := &envelopeRecorder{}
		removed := &envelopeRecorder{}
		keptHandle, err := s.manager.Subscribe(content.TopicProjects, nil, kept.handler())
		s.Require().NoError(err)
		removedHandle, err := s.manager.Subscribe(content.TopicProjects, nil, removed.handler())
		s.Require().NoError(err)
		defer s.manager.Unsubscribe(keptHandle)

		s.manager.Unsubscribe(removedHandle)
		s.publish(content.TopicProjects, EventUpsert)

		s.Require().Eventually(func() bool {
			return kept.count() == 1
		}, time.Second, 5*time.Millisecond)
		s.Equal(0, removed.count())
	})

	s.Run("last handler releases the transport channel", func() {
		recorder := &envelopeRecorder{}
		handle, err := s.manager.Subscribe(content.TopicTheme, nil, recorder.handler())
		s.Require().NoError(err)
		s.Equal(1, s.transport.SubscriberCount(content.TopicTheme))

		s.manager.Unsubscribe(handle)

		s.Require().Eventually(func() bool {
			return s.transport.SubscriberCount(content.TopicTheme) == 0
		}, time.Second, 5*time.Millisecond)

		// Signals after teardown reach nobody.
		s.publish(content.TopicTheme, EventUpsert)
		time.Sleep(20 * time.Millisecond)
		s.Equal(0, recorder.count())
	})

	s.Run("idempotent", func() {
		recorder := &envelopeRecorder{}
		handle, err := s.manager.Subscribe(content.TopicMedia, nil, recorder.handler())
		s.Require().NoError(err)

		s.manager.Unsubscribe(handle)
		s.manager.Unsubscribe(handle)
		s.Equal(0, s.transport.SubscriberCount(content.TopicMedia))
	})
}

func (s *ManagerSuite) TestReconnect() {
	s.Run("dropped channel is reopened and a reconnect signal is synthesized", func() {
		recorder := &envelopeRecorder{}
		handle, err := s.manager.Subscribe(content.TopicProjects, nil, recorder.handler())
		s.Require().NoError(err)
		defer s.manager.Unsubscribe(handle)

		s.transport.Drop(content.TopicProjects)

		s.Require().Eventually(func() bool {
			envs := recorder.seen()
			return len(envs) == 1 && envs[0].EventKind == EventReconnect
		}, time.Second, 5*time.Millisecond)

		// The replacement channel is live again.
		s.Equal(1, s.transport.SubscriberCount(content.TopicProjects))
		s.publish(content.TopicProjects, EventUpsert)
		s.Require().Eventually(func() bool {
			return recorder.count() == 2
		}, time.Second, 5*time.Millisecond)
	})

	s.Run("reconnect signal bypasses predicates", func() {
		rejectAll := &envelopeRecorder{}
		handle, err := s.manager.Subscribe(content.TopicSkills,
			func(Envelope) bool { return false },
			rejectAll.handler())
		s.Require().NoError(err)
		defer s.manager.Unsubscribe(handle)

		s.publish(content.TopicSkills, EventUpsert)
		s.transport.Drop(content.TopicSkills)

		s.Require().Eventually(func() bool {
			envs := rejectAll.seen()
			return len(envs) == 1 && envs[0].EventKind == EventReconnect
		}, time.Second, 5*time.Millisecond)
	})
}

func (s *ManagerSuite) TestClose() {
	recorder := &envelopeRecorder{}
	_, err := s.manager.Subscribe(content.TopicProjects, nil, recorder.handler())
	s.Require().NoError(err)

	s.manager.Close()

	s.Equal(0, s.transport.SubscriberCount(content.TopicProjects))

	_, err = s.manager.Subscribe(content.TopicProjects, nil, recorder.handler())
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrClosed)

	// Close is idempotent.
	s.manager.Close()
}
