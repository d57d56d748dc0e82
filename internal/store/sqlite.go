package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// SQLiteStore handles SQLite database operations. It backs the hub when no
// Postgres is configured (local demos, tests).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/hub.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/hub.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		endpoint TEXT NOT NULL DEFAULT '',
		capabilities TEXT NOT NULL DEFAULT '[]',
		parent_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS agent_messages (
		id TEXT PRIMARY KEY,
		from_name TEXT NOT NULL,
		to_name TEXT NOT NULL,
		from_agent_id TEXT,
		to_agent_id TEXT,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(name);
	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON agent_messages(created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_to_agent ON agent_messages(to_agent_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertAgent inserts or updates an agent record keyed by name.
func (s *SQLiteStore) UpsertAgent(ctx context.Context, params UpsertAgentParams) (*models.Agent, error) {
	caps, err := json.Marshal(capsOrEmpty(params.Capabilities))
	if err != nil {
		return nil, err
	}

	var parentStr *string
	if params.ParentID != nil {
		str := params.ParentID.String()
		parentStr = &str
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'active', ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET endpoint = excluded.endpoint, capabilities = excluded.capabilities, updated_at = excluded.updated_at
	`, id, params.Name, params.Kind, params.Endpoint, string(caps), parentStr, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetAgentByName(ctx, params.Name)
}

// GetAgentByName retrieves an agent by its unique name.
func (s *SQLiteStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents WHERE name = ?
	`, name))
}

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents WHERE id = ?
	`, id.String()))
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	var idStr, capsStr string
	var parentStr *string
	err := row.Scan(
		&idStr,
		&agent.Name,
		&agent.Kind,
		&agent.Endpoint,
		&capsStr,
		&parentStr,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	agent.ID = uuid.MustParse(idStr)
	if parentStr != nil {
		parentID := uuid.MustParse(*parentStr)
		agent.ParentID = &parentID
	}
	if err := json.Unmarshal([]byte(capsStr), &agent.Capabilities); err != nil {
		return nil, err
	}
	return agent, nil
}

// ListAgents retrieves agents with pagination, most recently updated first.
func (s *SQLiteStore) ListAgents(ctx context.Context, limit, offset int) ([]models.Agent, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, endpoint, capabilities, parent_id, status, created_at, updated_at
		FROM agents
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var agent models.Agent
		var idStr, capsStr string
		var parentStr *string

		err := rows.Scan(
			&idStr,
			&agent.Name,
			&agent.Kind,
			&agent.Endpoint,
			&capsStr,
			&parentStr,
			&agent.Status,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		agent.ID = uuid.MustParse(idStr)
		if parentStr != nil {
			parentID := uuid.MustParse(*parentStr)
			agent.ParentID = &parentID
		}
		if err := json.Unmarshal([]byte(capsStr), &agent.Capabilities); err != nil {
			return nil, 0, err
		}
		agents = append(agents, agent)
	}

	return agents, total, nil
}

// CountAgents returns the total number of registered agents.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// AppendMessage stores a message envelope.
func (s *SQLiteStore) AppendMessage(ctx context.Context, env *models.Envelope) error {
	var fromStr, toStr *string
	if env.FromID != nil {
		str := env.FromID.String()
		fromStr = &str
	}
	if env.ToID != nil {
		str := env.ToID.String()
		toStr = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_messages (id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, env.ID.String(), env.From, env.To, fromStr, toStr, env.Kind, string(env.Payload), env.Status, env.CreatedAt)
	return err
}

// GetMessage retrieves a message envelope by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id uuid.UUID) (*models.Envelope, error) {
	env, err := s.scanMessage(s.db.QueryRowContext(ctx, `
		SELECT id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at
		FROM agent_messages WHERE id = ?
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return env, nil
}

func (s *SQLiteStore) scanMessage(row *sql.Row) (*models.Envelope, error) {
	env := &models.Envelope{}
	var idStr, payloadStr string
	var fromStr, toStr *string
	err := row.Scan(
		&idStr,
		&env.From,
		&env.To,
		&fromStr,
		&toStr,
		&env.Kind,
		&payloadStr,
		&env.Status,
		&env.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	env.ID = uuid.MustParse(idStr)
	env.Payload = json.RawMessage(payloadStr)
	if fromStr != nil {
		fromID := uuid.MustParse(*fromStr)
		env.FromID = &fromID
	}
	if toStr != nil {
		toID := uuid.MustParse(*toStr)
		env.ToID = &toID
	}
	return env, nil
}

// RecentMessages retrieves the most recent envelopes, newest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]models.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_name, to_name, from_agent_id, to_agent_id, kind, payload, status, created_at
		FROM agent_messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var envs []models.Envelope
	for rows.Next() {
		var env models.Envelope
		var idStr, payloadStr string
		var fromStr, toStr *string

		err := rows.Scan(
			&idStr,
			&env.From,
			&env.To,
			&fromStr,
			&toStr,
			&env.Kind,
			&payloadStr,
			&env.Status,
			&env.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		env.ID = uuid.MustParse(idStr)
		env.Payload = json.RawMessage(payloadStr)
		if fromStr != nil {
			fromID := uuid.MustParse(*fromStr)
			env.FromID = &fromID
		}
		if toStr != nil {
			toID := uuid.MustParse(*toStr)
			env.ToID = &toID
		}
		envs = append(envs, env)
	}

	return envs, nil
}

// CountMessages returns the total number of stored envelopes.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_messages`).Scan(&count)
	return count, err
}
