package sync

import (
	"context"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/require"

	"atelier/internal/content"
	"atelier/pkg/platform/sentinel"
)

func TestMemoryTransportSubscribeAfterClose(t *testing.T) {
	transport := NewMemoryTransport()
	require.NoError(t, transport.Close())

	_, err := transport.Subscribe(context.Background(), content.TopicSkills)
	require.ErrorIs(t, err, sentinel.ErrClosed)
}

func TestMemoryTransportChannelCloseIsIdempotent(t *testing.T) {
	transport := NewMemoryTransport()
	defer transport.Close()

	ch, err := transport.Subscribe(context.Background(), content.TopicSkills)
	require.NoError(t, err)
	require.Equal(t, 1, transport.SubscriberCount(content.TopicSkills))

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	require.Equal(t, 0, transport.SubscriberCount(content.TopicSkills))
}

// Publishing must never race channel teardown: a subscriber closing (or the
// transport dropping) while a publish is in flight previously sent on a
// closed channel and panicked. Run with -race.
func TestMemoryTransportPublishDuringTeardown(t *testing.T) {
	transport := NewMemoryTransport()
	defer transport.Close()

	env := Envelope{
		EventKind:  EventUpsert,
		Schema:     "public",
		Collection: string(content.TopicProjects),
		Payload:    map[string]any{"title": "churn"},
	}

	const iterations = 500
	var wg stdsync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			require.NoError(t, transport.Publish(context.Background(), env))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			ch, err := transport.Subscribe(context.Background(), content.TopicProjects)
			require.NoError(t, err)
			require.NoError(t, ch.Close())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			transport.Drop(content.TopicProjects)
		}
	}()

	wg.Wait()
}
