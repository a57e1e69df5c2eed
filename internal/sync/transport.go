// Package sync keeps independently mounted consumers consistent with the
// content store: a topic-scoped notification transport, a subscription
// manager that fans signals out to live handlers, and a pull-based
// reconciler that re-derives full state on every signal.
package sync

import (
	"context"

	"atelier/internal/content"
)

// Event kinds carried by envelopes. Consumers must treat every envelope as
// a "something changed, topic X" signal; only the collection is trusted.
const (
	EventUpsert    = "upsert"
	EventDelete    = "delete"
	EventForceSync = "force_sync"
	// EventReconnect is synthesized locally after a transport drop; it never
	// travels over the wire.
	EventReconnect = "reconnect"
)

// Envelope is the wire format of one change signal. Delivery is
// at-least-once and only ordered within a single topic, so the payload is
// advisory: reconciliation always refetches instead of applying it.
type Envelope struct {
	EventKind  string         `json:"event_kind"`
	Schema     string         `json:"schema"`
	Collection string         `json:"collection"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Topic returns the envelope's collection as a typed topic.
func (e Envelope) Topic() (content.Topic, error) {
	return content.ParseTopic(e.Collection)
}

// Channel is one live topic subscription. Events() closes when the
// subscription is torn down or the transport drops; callers distinguish the
// two by whether they called Close.
type Channel interface {
	Events() <-chan Envelope
	Close() error
}

// Transport delivers change signals per subscribed topic, at-least-once.
type Transport interface {
	Subscribe(ctx context.Context, topic content.Topic) (Channel, error)
	Publish(ctx context.Context, env Envelope) error
}
