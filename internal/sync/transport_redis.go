package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	stdsync "sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"atelier/internal/content"
)

// channelPrefix namespaces the pub/sub channels so one Redis can serve
// several environments.
const channelPrefix = "atelier:changes:"

// RedisTransport delivers change signals over Redis pub/sub, one channel
// per topic. Redis pub/sub is fire-and-forget: a dropped connection loses
// messages, which is why consumers reconcile with a full fetch on
// reconnect instead of trusting replay.
type RedisTransport struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisOption configures a RedisTransport.
type RedisOption func(*RedisTransport)

// WithRedisLogger overrides the default logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(t *RedisTransport) { t.logger = logger }
}

// NewRedisTransport wraps an existing client; its lifecycle stays with the
// caller.
func NewRedisTransport(client *redis.Client, opts ...RedisOption) *RedisTransport {
	t := &RedisTransport{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func channelName(topic content.Topic) string {
	return channelPrefix + string(topic)
}

func (t *RedisTransport) Publish(ctx context.Context, env Envelope) error {
	topic, err := env.Topic()
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := t.client.Publish(ctx, channelName(topic), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channelName(topic), err)
	}
	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context, topic content.Topic) (Channel, error) {
	pubsub := t.client.Subscribe(ctx, channelName(topic))

	// Confirm the subscription before handing the channel out; a consumer
	// must never believe it is live while the SUBSCRIBE is still in flight.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channelName(topic), err)
	}

	ch := &redisChannel{
		pubsub: pubsub,
		events: make(chan Envelope, channelBuffer),
		logger: t.logger,
		topic:  topic,
	}
	go ch.receive()
	return ch, nil
}

type redisChannel struct {
	pubsub    *redis.PubSub
	events    chan Envelope
	logger    *slog.Logger
	topic     content.Topic
	closed    atomic.Bool
	closeOnce stdsync.Once
}

func (c *redisChannel) Events() <-chan Envelope { return c.events }

func (c *redisChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.pubsub.Close()
	})
	return err
}

// receive pumps raw messages into the events channel. Any receive error on
// a channel that was not deliberately closed is treated as a transport
// disconnect: the events channel closes and the manager resubscribes.
func (c *redisChannel) receive() {
	defer close(c.events)
	for {
		msg, err := c.pubsub.ReceiveMessage(context.Background())
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("change subscription dropped",
					"topic", string(c.topic),
					"error", err.Error(),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			c.logger.Warn("discarding malformed change signal",
				"topic", string(c.topic),
				"error", err.Error(),
			)
			continue
		}
		c.events <- env
	}
}
