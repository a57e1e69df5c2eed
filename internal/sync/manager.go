package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"atelier/internal/content"
	"atelier/internal/platform/metrics"
	"atelier/pkg/platform/sentinel"
)

// Handler consumes one change signal.
type Handler func(Envelope)

// Predicate filters which envelopes a handler sees. A nil predicate accepts
// everything. Locally synthesized reconnect signals bypass predicates so a
// missed-event gap always reaches every consumer.
type Predicate func(Envelope) bool

// Handle identifies one registered subscription for Unsubscribe.
type Handle struct {
	topic content.Topic
	id    uint64
}

type subscription struct {
	predicate Predicate
	handler   Handler
}

type topicState struct {
	channel  Channel
	handlers map[uint64]subscription
	stopping bool
}

// Manager owns the subscription registry: one transport channel per topic
// with at least one handler, shared by every handler on that topic. The
// registry is an explicit object with create/dispose lifecycle, never a
// process-wide singleton, so tests and remounts cannot leak stale handlers.
//
// Per subscription the lifecycle is unregistered -> active -> torn down,
// and torn down is terminal. Closing the last handler on a topic releases
// the transport channel so a later signal cannot reach a stale listener.
type Manager struct {
	transport      Transport
	logger         *slog.Logger
	metrics        *metrics.Metrics
	reconnectDelay time.Duration

	mu     stdsync.Mutex
	topics map[content.Topic]*topicState
	nextID uint64
	closed bool
	wg     stdsync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithManagerMetrics wires the shared metrics registry.
func WithManagerMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mx }
}

// WithReconnectDelay tunes the pause between resubscribe attempts.
func WithReconnectDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.reconnectDelay = d }
}

// NewManager constructs a Manager over the given transport.
func NewManager(transport Transport, opts ...ManagerOption) *Manager {
	m := &Manager{
		transport:      transport,
		logger:         slog.Default(),
		reconnectDelay: time.Second,
		topics:         make(map[content.Topic]*topicState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers a handler for a topic. The first handler on a topic
// opens the transport channel; later handlers multiplex onto it.
func (m *Manager) Subscribe(topic content.Topic, predicate Predicate, handler Handler) (Handle, error) {
	if handler == nil {
		return Handle{}, fmt.Errorf("handler is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Handle{}, fmt.Errorf("subscription manager: %w", sentinel.ErrClosed)
	}

	st, ok := m.topics[topic]
	if !ok {
		ch, err := m.transport.Subscribe(context.Background(), topic)
		if err != nil {
			return Handle{}, fmt.Errorf("open channel for %s: %w", topic, err)
		}
		st = &topicState{channel: ch, handlers: make(map[uint64]subscription)}
		m.topics[topic] = st
		m.wg.Add(1)
		go m.pump(topic, ch)
	}

	m.nextID++
	id := m.nextID
	st.handlers[id] = subscription{predicate: predicate, handler: handler}
	if m.metrics != nil {
		m.metrics.ActiveSubscriptions.Inc()
	}
	return Handle{topic: topic, id: id}, nil
}

// Unsubscribe tears one subscription down. The last handler on a topic
// releases the transport channel. Idempotent.
func (m *Manager) Unsubscribe(h Handle) {
	m.mu.Lock()
	st, ok := m.topics[h.topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, exists := st.handlers[h.id]; !exists {
		m.mu.Unlock()
		return
	}
	delete(st.handlers, h.id)
	if m.metrics != nil {
		m.metrics.ActiveSubscriptions.Dec()
	}

	var release Channel
	if len(st.handlers) == 0 {
		st.stopping = true
		release = st.channel
		delete(m.topics, h.topic)
	}
	m.mu.Unlock()

	if release != nil {
		release.Close()
	}
}

// Close tears down every subscription and waits for the pumps to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	channels := make([]Channel, 0, len(m.topics))
	for topic, st := range m.topics {
		st.stopping = true
		channels = append(channels, st.channel)
		delete(m.topics, topic)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	m.wg.Wait()
}

// pump drains one topic channel, dispatching each envelope to the live
// handlers. When the channel closes without a deliberate teardown the pump
// resubscribes and synthesizes a reconnect signal, because missed events
// are not replayed and only a full reconciliation restores consistency.
func (m *Manager) pump(topic content.Topic, ch Channel) {
	defer m.wg.Done()
	for {
		for env := range ch.Events() {
			m.dispatch(topic, env)
		}

		if m.tornDown(topic, ch) {
			return
		}

		if m.metrics != nil {
			m.metrics.TransportReconnects.Inc()
		}
		m.logger.Warn("change channel dropped, resubscribing", "topic", string(topic))

		next, ok := m.resubscribe(topic)
		if !ok {
			return
		}

		m.mu.Lock()
		st, live := m.topics[topic]
		if !live || st.stopping {
			m.mu.Unlock()
			next.Close()
			return
		}
		st.channel = next
		m.mu.Unlock()

		ch = next
		m.dispatch(topic, Envelope{
			EventKind:  EventReconnect,
			Schema:     "local",
			Collection: string(topic),
		})
	}
}

// tornDown reports whether the pump's channel closed because of a
// deliberate Unsubscribe/Close rather than a transport drop.
func (m *Manager) tornDown(topic content.Topic, ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.topics[topic]
	return !ok || st.stopping || st.channel != ch
}

// resubscribe retries until a channel opens or the topic is torn down.
func (m *Manager) resubscribe(topic content.Topic) (Channel, bool) {
	for {
		ch, err := m.transport.Subscribe(context.Background(), topic)
		if err == nil {
			return ch, true
		}
		m.logger.Warn("resubscribe failed",
			"topic", string(topic),
			"error", err.Error(),
		)
		time.Sleep(m.reconnectDelay)

		m.mu.Lock()
		st, ok := m.topics[topic]
		gone := !ok || st.stopping
		m.mu.Unlock()
		if gone {
			return nil, false
		}
	}
}

func (m *Manager) dispatch(topic content.Topic, env Envelope) {
	m.mu.Lock()
	st, ok := m.topics[topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	subs := make([]subscription, 0, len(st.handlers))
	for _, s := range st.handlers {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		if env.EventKind == EventReconnect || s.predicate == nil || s.predicate(env) {
			s.handler(env)
		}
	}
	if m.metrics != nil {
		m.metrics.SignalsDispatched.WithLabelValues(string(topic)).Inc()
	}
}
