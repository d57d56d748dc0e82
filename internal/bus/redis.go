package bus

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by Redis pub/sub channels, one channel per topic.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a Redis-backed bus from a connection URL.
func NewRedisBus(ctx context.Context, redisURL string) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBus{client: client}, nil
}

// Client exposes the underlying Redis client for shared concerns such as
// rate limit counters.
func (b *RedisBus) Client() *redis.Client {
	return b.client
}

// Ping checks the Redis connection.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish sends a payload on the Redis channel named after the topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a Redis subscription and forwards payloads until
// Unsubscribe is called.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Wait for the subscription to be confirmed so a publish issued right
	// after Subscribe returns is observable.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		id:     ulid.Make().String(),
		pubsub: pubsub,
		events: make(chan []byte, subscriptionBuffer),
	}

	go sub.forward(pubsub.Channel())
	return sub, nil
}

// Close closes the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	id        string
	pubsub    *redis.PubSub
	events    chan []byte
	closeOnce sync.Once
}

// forward pushes payloads to the events channel until the Redis
// subscription closes. A consumer that stops draining without
// unsubscribing is dropped after the grace period, same as the in-process
// bus, so the goroutine never parks forever on a full channel.
func (s *redisSubscription) forward(msgs <-chan *redis.Message) {
	defer close(s.events)
	for msg := range msgs {
		select {
		case s.events <- []byte(msg.Payload):
		case <-time.After(defaultSlowSubscriberTimeout):
			s.close()
			return
		}
	}
}

func (s *redisSubscription) ID() string {
	return s.id
}

func (s *redisSubscription) Events() <-chan []byte {
	return s.events
}

func (s *redisSubscription) Unsubscribe() {
	s.close()
}

// close tears down the Redis subscription, which ends forward's message
// loop. The events channel is closed by forward itself.
func (s *redisSubscription) close() {
	s.closeOnce.Do(func() {
		s.pubsub.Close()
	})
}
