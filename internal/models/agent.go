package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent statuses.
const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
)

// Agent represents a registered agent. Name is the routing key: messages
// addressed to an agent are published on the topic derived from its name.
type Agent struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Kind         string     `json:"kind"`
	Endpoint     string     `json:"endpoint,omitempty"`
	Capabilities []string   `json:"capabilities"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
