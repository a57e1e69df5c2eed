package sync

import (
	"context"

	"atelier/internal/content"
	"atelier/internal/platform/metrics"
)

// Publisher adapts the transport to the content service's notifier port so
// the service can announce commits without knowing the wire format.
type Publisher struct {
	transport Transport
	metrics   *metrics.Metrics
}

// NewPublisher constructs a Publisher.
func NewPublisher(transport Transport, m *metrics.Metrics) *Publisher {
	return &Publisher{transport: transport, metrics: m}
}

// ContentChanged publishes one change signal for a committed write.
func (p *Publisher) ContentChanged(ctx context.Context, topic content.Topic, eventKind string, payload map[string]any) error {
	err := p.transport.Publish(ctx, Envelope{
		EventKind:  eventKind,
		Schema:     "public",
		Collection: string(topic),
		Payload:    payload,
	})
	if err == nil && p.metrics != nil {
		p.metrics.SignalsPublished.WithLabelValues(string(topic)).Inc()
	}
	return err
}
