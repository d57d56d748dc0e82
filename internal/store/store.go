package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// UpsertAgentParams carries the fields accepted by agent registration.
type UpsertAgentParams struct {
	Name         string
	Kind         string
	Endpoint     string
	Capabilities []string
	ParentID     *uuid.UUID
}

// DataStore defines the interface for durable storage of agents and message
// envelopes. Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Agent registry operations. UpsertAgent is keyed by unique name: a
	// first registration inserts with status active, a repeat registration
	// updates endpoint and capabilities in place.
	UpsertAgent(ctx context.Context, params UpsertAgentParams) (*models.Agent, error)
	GetAgentByName(ctx context.Context, name string) (*models.Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListAgents(ctx context.Context, limit, offset int) ([]models.Agent, int, error)
	CountAgents(ctx context.Context) (int64, error)

	// Message log operations. The log is append-only: envelopes are never
	// updated or deleted by the hub.
	AppendMessage(ctx context.Context, env *models.Envelope) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Envelope, error)
	RecentMessages(ctx context.Context, limit int) ([]models.Envelope, error)
	CountMessages(ctx context.Context) (int64, error)
}
