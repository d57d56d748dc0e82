// Package bus provides the publish/subscribe transport used to deliver
// routed messages to agents and flow events to observers. Delivery is
// at-most-once: a subscriber that connects after a publish never sees that
// event, and slow subscribers are dropped rather than blocking the hub.
package bus

import "context"

// BroadcastTopic carries redacted flow projections for observers.
const BroadcastTopic = "message:flow"

// AgentTopic returns the point-to-point topic for an agent name.
func AgentTopic(name string) string {
	return "agent:" + name
}

// Bus is a topic-keyed publish/subscribe transport.
type Bus interface {
	// Publish sends a payload to all current subscribers of topic. It never
	// blocks on consumption and succeeds with zero subscribers.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe opens a push-based subscription to topic. Events for one
	// subscription are delivered in publish order.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Close() error
}

// Subscription is a live attachment to a topic.
type Subscription interface {
	ID() string

	// Events yields payloads in publish order. The channel is closed when
	// the subscription ends.
	Events() <-chan []byte

	Unsubscribe()
}
