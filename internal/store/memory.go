package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// MemoryStore is an in-memory DataStore. It backs tests and throwaway runs;
// nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	agents   map[string]*models.Agent // keyed by name
	messages []*models.Envelope
	byID     map[uuid.UUID]*models.Envelope
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents: make(map[string]*models.Agent),
		byID:   make(map[uuid.UUID]*models.Envelope),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// UpsertAgent inserts or updates an agent record keyed by name.
func (s *MemoryStore) UpsertAgent(ctx context.Context, params UpsertAgentParams) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.agents[params.Name]; ok {
		existing.Endpoint = params.Endpoint
		existing.Capabilities = capsOrEmpty(params.Capabilities)
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	agent := &models.Agent{
		ID:           uuid.New(),
		Name:         params.Name,
		Kind:         params.Kind,
		Endpoint:     params.Endpoint,
		Capabilities: capsOrEmpty(params.Capabilities),
		ParentID:     params.ParentID,
		Status:       models.AgentStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.agents[params.Name] = agent
	copied := *agent
	return &copied, nil
}

// GetAgentByName retrieves an agent by its unique name.
func (s *MemoryStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[name]
	if !ok {
		return nil, nil
	}
	copied := *agent
	return &copied, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *MemoryStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, agent := range s.agents {
		if agent.ID == id {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, nil
}

// ListAgents retrieves agents with pagination, most recently updated first.
func (s *MemoryStore) ListAgents(ctx context.Context, limit, offset int) ([]models.Agent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		all = append(all, *agent)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// CountAgents returns the total number of registered agents.
func (s *MemoryStore) CountAgents(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.agents)), nil
}

// AppendMessage stores a message envelope.
func (s *MemoryStore) AppendMessage(ctx context.Context, env *models.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *env
	s.messages = append(s.messages, &copied)
	s.byID[env.ID] = &copied
	return nil
}

// GetMessage retrieves a message envelope by ID.
func (s *MemoryStore) GetMessage(ctx context.Context, id uuid.UUID) (*models.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *env
	return &copied, nil
}

// RecentMessages retrieves the most recent envelopes, newest first.
func (s *MemoryStore) RecentMessages(ctx context.Context, limit int) ([]models.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.messages)
	if limit > n {
		limit = n
	}

	envs := make([]models.Envelope, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		envs = append(envs, *s.messages[i])
	}
	return envs, nil
}

// CountMessages returns the total number of stored envelopes.
func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}
