package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope statuses. Envelopes are written once as pending; there is no
// acknowledgment path that advances them.
const (
	MessageStatusPending   = "pending"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
)

// Message kinds. The set is extensible; the hub never rejects an unknown kind.
const (
	MessageKindRequest  = "request"
	MessageKindResponse = "response"
	MessageKindEvent    = "event"
)

// Envelope is the durable record of one routed message. From/To carry the
// agent names the caller addressed; FromID/ToID hold the resolved registry
// ids, nil when the name was not registered at send time.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	FromID    *uuid.UUID      `json:"from_id,omitempty"`
	ToID      *uuid.UUID      `json:"to_id,omitempty"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Delivery is the event pushed on an agent's topic when a message is routed
// to it.
type Delivery struct {
	MessageID string          `json:"messageId"`
	FromAgent string          `json:"fromAgent"`
	Kind      string          `json:"messageType"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// FlowEvent is the redacted projection pushed on the broadcast topic for
// observers. Content is a short summary derived from the payload; the full
// body never leaves the point-to-point path.
type FlowEvent struct {
	ID        string      `json:"id"`
	FromAgent string      `json:"fromAgent"`
	ToAgent   string      `json:"toAgent"`
	Message   FlowMessage `json:"message"`
}

// FlowMessage is the message summary carried by a FlowEvent.
type FlowMessage struct {
	ID        string `json:"id"`
	Kind      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
