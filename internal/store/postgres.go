package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// postgresSchema is applied idempotently at startup. Schema evolution beyond
// this is handled outside the hub.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT UNIQUE NOT NULL,
	kind TEXT NOT NULL DEFAULT '',
	endpoint TEXT NOT NULL DEFAULT '',
	capabilities JSONB NOT NULL DEFAULT '[]',
	parent_id UUID REFERENCES agents(id),
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS agent_messages (
	id UUID PRIMARY KEY,
	from_name TEXT NOT NULL,
	to_name TEXT NOT NULL,
	from_agent_id UUID REFERENCES agents(id),
	to_agent_id UUID REFERENCES agents(id),
	kind TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(name);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON agent_messages(created_at);
CREATE INDEX IF NOT EXISTS idx_messages_to_agent ON agent_messages(to_agent_id);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertAgent inserts or updates an agent record keyed by name. On conflict
// the endpoint and capabilities are overwritten and updated_at refreshed;
// status and parent keep their stored values.
func (s *PostgresStore) UpsertAgent(ctx context.Context, params UpsertAgentParams) (*models.Agent, error) {
	caps, err := json.Marshal(capsOrEmpty(params.Capabilities))
	if err != nil {
		return nil, err
	}

	agent := &models.Agent{}
	var capsRaw []byte
	err = s.pool.QueryRow(ctx, `
		INSERT INTO agents (name, kind, endpoint, capabilities, parent_id, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (name)
		DO UPDATE SET endpoint = $3, capabilities = $4, updated_at = NOW()
		RETURNING id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
	`, params.Name, params.Kind, params.Endpoint, caps, params.ParentID).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Kind,
		&agent.Endpoint,
		&capsRaw,
		&agent.ParentID,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(capsRaw, &agent.Capabilities); err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgentByName retrieves an agent by its unique name.
func (s *PostgresStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.scanAgentRow(s.pool.QueryRow(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents WHERE name = $1
	`, name))
}

// GetAgentByID retrieves an agent by ID.
func (s *PostgresStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.scanAgentRow(s.pool.QueryRow(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents WHERE id = $1
	`, id))
}

func (s *PostgresStore) scanAgentRow(row pgx.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	var capsRaw []byte
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Kind,
		&agent.Endpoint,
		&capsRaw,
		&agent.ParentID,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(capsRaw, &agent.Capabilities); err != nil {
		return nil, err
	}
	return agent, nil
}

// ListAgents retrieves agents with pagination, most recently updated first.
func (s *PostgresStore) ListAgents(ctx context.Context, limit, offset int) ([]models.Agent, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var agent models.Agent
		var capsRaw []byte
		err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Kind,
			&agent.Endpoint,
			&capsRaw,
			&agent.ParentID,
			&agent.Status,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(capsRaw, &agent.Capabilities); err != nil {
			return nil, 0, err
		}
		agents = append(agents, agent)
	}

	return agents, total, nil
}

// CountAgents returns the total number of registered agents.
func (s *PostgresStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// AppendMessage stores a message envelope.
func (s *PostgresStore) AppendMessage(ctx context.Context, env *models.Envelope) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_messages (id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, env.ID, env.From, env.To, env.FromID, env.ToID, env.Kind, []byte(env.Payload), env.Status, env.CreatedAt)
	return err
}

// GetMessage retrieves a message envelope by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id uuid.UUID) (*models.Envelope, error) {
	env := &models.Envelope{}
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at
		FROM agent_messages WHERE id = $1
	`, id).Scan(
		&env.ID,
		&env.From,
		&env.To,
		&env.FromID,
		&env.ToID,
		&env.Kind,
		&payload,
		&env.Status,
		&env.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	env.Payload = payload
	return env, nil
}

// RecentMessages retrieves the most recent envelopes, newest first.
func (s *PostgresStore) RecentMessages(ctx context.Context, limit int) ([]models.Envelope, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at
		FROM agent_messages
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var envs []models.Envelope
	for rows.Next() {
		var env models.Envelope
		var payload []byte
		err := rows.Scan(
			&env.ID,
			&env.From,
			&env.To,
			&env.FromID,
			&env.ToID,
			&env.Kind,
			&payload,
			&env.Status,
			&env.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		env.Payload = payload
		envs = append(envs, env)
	}

	return envs, nil
}

// CountMessages returns the total number of stored envelopes.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agent_messages`).Scan(&count)
	return count, err
}

func capsOrEmpty(caps []string) []string {
	if caps == nil {
		return []string{}
	}
	return caps
}
