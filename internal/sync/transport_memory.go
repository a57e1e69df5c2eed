package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"atelier/internal/content"

	"atelier/pkg/platform/sentinel"
)

// channelBuffer bounds each subscriber's queue. A slow consumer drops
// signals rather than blocking the publisher; reconciliation makes a
// dropped signal harmless as long as a later one lands.
const channelBuffer = 16

// MemoryTransport is an in-process Transport for tests and dev mode.
type MemoryTransport struct {
	mu     stdsync.Mutex
	subs   map[content.Topic][]*memoryChannel
	closed bool
}

// NewMemoryTransport constructs an empty in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: make(map[content.Topic][]*memoryChannel)}
}

type memoryChannel struct {
	transport *MemoryTransport
	topic     content.Topic
	events    chan Envelope
	closeOnce stdsync.Once
}

func (c *memoryChannel) Events() <-chan Envelope { return c.events }

func (c *memoryChannel) Close() error {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	c.transport.removeLocked(c)
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

func (t *MemoryTransport) Subscribe(_ context.Context, topic content.Topic) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("memory transport: %w", sentinel.ErrClosed)
	}
	ch := &memoryChannel{transport: t, topic: topic, events: make(chan Envelope, channelBuffer)}
	t.subs[topic] = append(t.subs[topic], ch)
	return ch, nil
}

func (t *MemoryTransport) Publish(_ context.Context, env Envelope) error {
	topic, err := env.Topic()
	if err != nil {
		return err
	}

	// Sends happen under the mutex so a concurrent Close can never close
	// a channel mid-send. The send is non-blocking against a buffered
	// channel, so the lock is never held waiting on a consumer.
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs[topic] {
		select {
		case ch.events <- env:
		default:
			// Slow consumer; at-least-once only holds while it keeps up.
		}
	}
	return nil
}

// SubscriberCount reports live channels for a topic. Test hook.
func (t *MemoryTransport) SubscriberCount(topic content.Topic) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[topic])
}

// Drop closes every channel on a topic without unregistering intent,
// simulating a transport disconnect. Test hook.
func (t *MemoryTransport) Drop(topic content.Topic) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs[topic] {
		ch.closeOnce.Do(func() { close(ch.events) })
	}
	delete(t.subs, topic)
}

// Close tears down every channel.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, channels := range t.subs {
		for _, ch := range channels {
			ch.closeOnce.Do(func() { close(ch.events) })
		}
	}
	t.subs = make(map[content.Topic][]*memoryChannel)
	t.closed = true
	return nil
}

// removeLocked unregisters a channel. Caller holds t.mu.
func (t *MemoryTransport) removeLocked(target *memoryChannel) {
	channels := t.subs[target.topic]
	for i, ch := range channels {
		if ch == target {
			t.subs[target.topic] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(t.subs[target.topic]) == 0 {
		delete(t.subs, target.topic)
	}
}
