package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteAgents(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert inserts with active status", func(t *testing.T) {
		s := newTestStore(t)

		agent, err := s.UpsertAgent(ctx, UpsertAgentParams{
			Name:         "sales-agent",
			Kind:         "parent",
			Endpoint:     "http://sales-agent:3001",
			Capabilities: []string{"sales-analysis", "reporting"},
		})
		require.NoError(t, err)
		require.NotNil(t, agent)

		assert.Equal(t, "sales-agent", agent.Name)
		assert.Equal(t, "parent", agent.Kind)
		assert.Equal(t, models.AgentStatusActive, agent.Status)
		assert.Equal(t, []string{"sales-analysis", "reporting"}, agent.Capabilities)
		assert.NotEqual(t, uuid.Nil, agent.ID)
	})

	t.Run("upsert by same name updates in place", func(t *testing.T) {
		s := newTestStore(t)

		first, err := s.UpsertAgent(ctx, UpsertAgentParams{Name: "sales-agent", Endpoint: "http://old:1"})
		require.NoError(t, err)

		second, err := s.UpsertAgent(ctx, UpsertAgentParams{
			Name:         "sales-agent",
			Endpoint:     "http://new:2",
			Capabilities: []string{"fresh"},
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "http://new:2", second.Endpoint)
		assert.Equal(t, []string{"fresh"}, second.Capabilities)
		assert.Equal(t, models.AgentStatusActive, second.Status)

		count, err := s.CountAgents(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("lookup miss returns nil without error", func(t *testing.T) {
		s := newTestStore(t)

		agent, err := s.GetAgentByName(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, agent)

		agent, err = s.GetAgentByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, agent)
	})

	t.Run("stores parent reference", func(t *testing.T) {
		s := newTestStore(t)

		parent, err := s.UpsertAgent(ctx, UpsertAgentParams{Name: "orchestrator"})
		require.NoError(t, err)

		child, err := s.UpsertAgent(ctx, UpsertAgentParams{Name: "worker", ParentID: &parent.ID})
		require.NoError(t, err)
		require.NotNil(t, child.ParentID)
		assert.Equal(t, parent.ID, *child.ParentID)
	})

	t.Run("list orders by most recently updated", func(t *testing.T) {
		s := newTestStore(t)

		_, err := s.UpsertAgent(ctx, UpsertAgentParams{Name: "first"})
		require.NoError(t, err)
		_, err = s.UpsertAgent(ctx, UpsertAgentParams{Name: "second"})
		require.NoError(t, err)

		agents, total, err := s.ListAgents(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, agents, 2)
	})
}

func TestSQLiteMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("append and get round-trip", func(t *testing.T) {
		s := newTestStore(t)

		fromID := uuid.New()
		env := &models.Envelope{
			ID:        uuid.New(),
			From:      "sales-agent",
			To:        "ghost",
			FromID:    &fromID,
			Kind:      models.MessageKindRequest,
			Payload:   json.RawMessage(`{"action":"forecast"}`),
			Status:    models.MessageStatusPending,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.AppendMessage(ctx, env))

		stored, err := s.GetMessage(ctx, env.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)

		assert.Equal(t, env.ID, stored.ID)
		assert.Equal(t, "sales-agent", stored.From)
		assert.Equal(t, "ghost", stored.To)
		require.NotNil(t, stored.FromID)
		assert.Equal(t, fromID, *stored.FromID)
		assert.Nil(t, stored.ToID)
		assert.Equal(t, models.MessageStatusPending, stored.Status)
		assert.JSONEq(t, `{"action":"forecast"}`, string(stored.Payload))
	})

	t.Run("get miss returns nil without error", func(t *testing.T) {
		s := newTestStore(t)

		env, err := s.GetMessage(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, env)
	})

	t.Run("recent messages are newest first", func(t *testing.T) {
		s := newTestStore(t)

		base := time.Now().UTC().Truncate(time.Second)
		var ids []uuid.UUID
		for i := 0; i < 3; i++ {
			env := &models.Envelope{
				ID:        uuid.New(),
				From:      "a",
				To:        "b",
				Kind:      models.MessageKindEvent,
				Payload:   json.RawMessage(`{}`),
				Status:    models.MessageStatusPending,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, s.AppendMessage(ctx, env))
			ids = append(ids, env.ID)
		}

		envs, err := s.RecentMessages(ctx, 2)
		require.NoError(t, err)
		require.Len(t, envs, 2)
		assert.Equal(t, ids[2], envs[0].ID)
		assert.Equal(t, ids[1], envs[1].ID)

		count, err := s.CountMessages(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})
}
