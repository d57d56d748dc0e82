package bus

import (
	"context"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/oklog/ulid/v2"
)

const (
	subscriptionBuffer           = 64
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
)

// localBus is an in-process Bus for single-binary runs and tests.
type localBus struct {
	topics                *haxmap.Map[string, *localTopic]
	slowSubscriberTimeout time.Duration
}

// Local creates an in-process Bus.
func Local() Bus {
	return &localBus{
		topics:                haxmap.New[string, *localTopic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

func (b *localBus) topic(id string) *localTopic {
	topic, _ := b.topics.GetOrCompute(id, func() *localTopic {
		return &localTopic{
			id:                    id,
			subscriptions:         haxmap.New[string, *localSubscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return topic
}

func (b *localBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.topic(topic).publish(ctx, payload)
}

func (b *localBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	return b.topic(topic).subscribe(), nil
}

func (b *localBus) Close() error {
	b.topics.ForEach(func(_ string, t *localTopic) bool {
		t.subscriptions.ForEach(func(_ string, sub *localSubscription) bool {
			sub.Unsubscribe()
			return true
		})
		return true
	})
	return nil
}

type localTopic struct {
	id                    string
	subscriptions         *haxmap.Map[string, *localSubscription]
	slowSubscriberTimeout time.Duration
}

func (t *localTopic) publish(ctx context.Context, payload []byte) error {
	t.subscriptions.ForEach(func(_ string, sub *localSubscription) bool {
		return sub.deliver(ctx, payload, t.slowSubscriberTimeout)
	})
	return nil
}

func (t *localTopic) subscribe() *localSubscription {
	id := ulid.Make().String()
	sub := &localSubscription{
		id:     id,
		events: make(chan []byte, subscriptionBuffer),
		onClose: func() {
			t.subscriptions.Del(id)
		},
	}
	t.subscriptions.Set(id, sub)
	return sub
}

type localSubscription struct {
	id      string
	events  chan []byte
	mu      sync.Mutex
	closed  bool
	onClose func()
}

// deliver sends one payload to the subscriber, dropping it when the channel
// stays full past the grace period. The mutex orders delivery against
// Unsubscribe: the channel can only be closed by whoever holds it, so a
// consumer unsubscribing mid-publish never races the send.
func (s *localSubscription) deliver(ctx context.Context, payload []byte, grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	case s.events <- payload:
	case <-time.After(grace):
		// Channel still full after the grace period, drop the subscriber.
		s.closeLocked()
	}
	return true
}

func (s *localSubscription) ID() string {
	return s.id
}

func (s *localSubscription) Events() <-chan []byte {
	return s.events
}

func (s *localSubscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *localSubscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	close(s.events)
}
