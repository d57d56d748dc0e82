// Package hub implements the routing core: it orchestrates agent
// registration and message sends against the durable store, then fans the
// message out on the channel bus.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/aaronmeis/mock-agent-supplychain/internal/bus"
	"github.com/aaronmeis/mock-agent-supplychain/internal/metrics"
	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
	"github.com/aaronmeis/mock-agent-supplychain/internal/store"
)

// ErrStorage marks failures of the registry or message store. Callers see
// these as failed requests; bus-level failures are never wrapped in it.
var ErrStorage = errors.New("storage error")

const (
	storeTimeout   = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// Hub routes registration and send requests. It holds the store and bus
// handles for the lifetime of the process; construct with New and pass down
// to the HTTP layer.
type Hub struct {
	store  store.DataStore
	bus    bus.Bus
	logger zerolog.Logger
}

// New creates a Hub.
func New(dataStore store.DataStore, channelBus bus.Bus, logger zerolog.Logger) *Hub {
	return &Hub{
		store:  dataStore,
		bus:    channelBus,
		logger: logger,
	}
}

// RegisterParams carries a registration request.
type RegisterParams struct {
	Name         string
	Kind         string
	Endpoint     string
	Capabilities []string
	ParentID     *uuid.UUID
}

// Register upserts the agent record keyed by name and returns its durable
// id. Registration is idempotent: repeating a name updates endpoint and
// capabilities in place.
func (h *Hub) Register(ctx context.Context, params RegisterParams) (*models.Agent, error) {
	if params.Name == "" {
		return nil, errors.New("agent name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	start := time.Now()
	agent, err := h.store.UpsertAgent(ctx, store.UpsertAgentParams{
		Name:         params.Name,
		Kind:         params.Kind,
		Endpoint:     params.Endpoint,
		Capabilities: params.Capabilities,
		ParentID:     params.ParentID,
	})
	metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: upsert agent: %v", ErrStorage, err)
	}

	metrics.AgentsRegistered.Inc()
	h.logger.Info().
		Str("agent", agent.Name).
		Str("kind", agent.Kind).
		Str("agent_id", agent.ID.String()).
		Msg("agent registered")

	return agent, nil
}

// SendParams carries a send request. Payload is opaque to the hub.
type SendParams struct {
	From    string
	To      string
	Kind    string
	Payload json.RawMessage
}

// Send routes one message: it generates the message id, resolves the agent
// names, persists the envelope, then publishes to the target's topic and the
// broadcast topic. The store write is authoritative; publish failures are
// logged and counted but do not fail the call.
func (h *Hub) Send(ctx context.Context, params SendParams) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	env := &models.Envelope{
		ID:        id,
		From:      params.From,
		To:        params.To,
		Kind:      params.Kind,
		Payload:   payloadOrEmpty(params.Payload),
		Status:    models.MessageStatusPending,
		CreatedAt: now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	// Unregistered names are tolerated: the envelope keeps a nil reference
	// and routing proceeds, so an agent can send before its own
	// registration round-trip completes.
	env.FromID = h.resolve(storeCtx, params.From)
	env.ToID = h.resolve(storeCtx, params.To)

	start := time.Now()
	if err := h.store.AppendMessage(storeCtx, env); err != nil {
		return uuid.Nil, fmt.Errorf("%w: append message: %v", ErrStorage, err)
	}
	metrics.StoreLatency.Observe(time.Since(start).Seconds())

	h.publishDelivery(ctx, env)
	h.publishFlow(ctx, env)

	metrics.MessagesSent.WithLabelValues(env.Kind).Inc()
	h.logger.Info().
		Str("message_id", id.String()).
		Str("from", params.From).
		Str("to", params.To).
		Str("kind", params.Kind).
		Msg("message routed")

	return id, nil
}

func (h *Hub) resolve(ctx context.Context, name string) *uuid.UUID {
	agent, err := h.store.GetAgentByName(ctx, name)
	if err != nil {
		h.logger.Warn().Err(err).Str("agent", name).Msg("agent lookup failed")
		return nil
	}
	if agent == nil {
		return nil
	}
	id := agent.ID
	return &id
}

// publishDelivery pushes the full envelope on the target agent's topic.
func (h *Hub) publishDelivery(ctx context.Context, env *models.Envelope) {
	delivery := models.Delivery{
		MessageID: env.ID.String(),
		FromAgent: env.From,
		Kind:      env.Kind,
		Payload:   env.Payload,
		Timestamp: env.CreatedAt.Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(delivery)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", env.ID.String()).Msg("delivery encode failed")
		metrics.PublishFailures.WithLabelValues("agent").Inc()
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := h.bus.Publish(pubCtx, bus.AgentTopic(env.To), data); err != nil {
		// The envelope is durably stored as pending; delivery will not be
		// retried from here.
		h.logger.Error().Err(err).
			Str("message_id", env.ID.String()).
			Str("to", env.To).
			Msg("delivery publish failed")
		metrics.PublishFailures.WithLabelValues("agent").Inc()
	}
}

// publishFlow pushes the redacted projection on the broadcast topic.
func (h *Hub) publishFlow(ctx context.Context, env *models.Envelope) {
	flow := models.FlowEvent{
		ID:        env.ID.String(),
		FromAgent: env.From,
		ToAgent:   env.To,
		Message: models.FlowMessage{
			ID:        env.ID.String(),
			Kind:      env.Kind,
			Content:   contentSummary(env.Payload),
			Timestamp: env.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	data, err := json.Marshal(flow)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", env.ID.String()).Msg("flow encode failed")
		metrics.PublishFailures.WithLabelValues("broadcast").Inc()
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := h.bus.Publish(pubCtx, bus.BroadcastTopic, data); err != nil {
		h.logger.Error().Err(err).
			Str("message_id", env.ID.String()).
			Msg("flow publish failed")
		metrics.PublishFailures.WithLabelValues("broadcast").Inc()
	}
}

const maxSummaryLen = 200

// contentSummary extracts a display string from the opaque payload without
// validating it. Only the conventional "content" field is read.
func contentSummary(payload json.RawMessage) string {
	content := gjson.GetBytes(payload, "content").String()
	if content == "" {
		return "No content"
	}
	if len(content) > maxSummaryLen {
		return content[:maxSummaryLen-3] + "..."
	}
	return content
}

func payloadOrEmpty(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("{}")
	}
	return payload
}
