package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronmeis/mock-agent-supplychain/internal/bus"
	"github.com/aaronmeis/mock-agent-supplychain/internal/hub"
	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
	"github.com/aaronmeis/mock-agent-supplychain/internal/store"
)

type testEnv struct {
	server *httptest.Server
	store  *store.MemoryStore
	bus    bus.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	memStore := store.NewMemoryStore()
	channelBus := bus.Local()
	hubCore := hub.New(memStore, channelBus, zerolog.Nop())
	router := NewRouter(zerolog.Nop(), hubCore, memStore, channelBus, nil, nil)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		channelBus.Close()
	})

	return &testEnv{server: server, store: memStore, bus: channelBus}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (e *testEnv) getJSON(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.getJSON(t, "/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("registers a new agent", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.postJSON(t, "/api/agents/register", map[string]interface{}{
			"agentName":    "sales-agent",
			"agentType":    "parent",
			"endpoint":     "http://sales-agent:3001",
			"capabilities": []string{"sales-analysis"},
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		_, err := uuid.Parse(body["agentId"].(string))
		assert.NoError(t, err)
	})

	t.Run("re-registration returns the same id", func(t *testing.T) {
		env := newTestEnv(t)

		_, first := env.postJSON(t, "/api/agents/register", map[string]interface{}{
			"agentName": "sales-agent", "endpoint": "http://a:1",
		})
		_, second := env.postJSON(t, "/api/agents/register", map[string]interface{}{
			"agentName": "sales-agent", "endpoint": "http://b:2",
		})

		assert.Equal(t, first["agentId"], second["agentId"])

		agent, err := env.store.GetAgentByName(context.Background(), "sales-agent")
		require.NoError(t, err)
		require.NotNil(t, agent)
		assert.Equal(t, "http://b:2", agent.Endpoint)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.postJSON(t, "/api/agents/register", map[string]interface{}{
			"agentType": "sub-agent",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["error"])
	})
}

func TestSendEndpoint(t *testing.T) {
	t.Run("rejects missing addressing", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.postJSON(t, "/api/messages/send", map[string]interface{}{
			"messageType": "request",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, false, body["success"])
	})

	t.Run("accepts unregistered agent names", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.postJSON(t, "/api/messages/send", map[string]interface{}{
			"fromAgent":   "ghost",
			"toAgent":     "ghost2",
			"messageType": "event",
			"payload":     map[string]interface{}{"content": "boo"},
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])

		id, err := uuid.Parse(body["messageId"].(string))
		require.NoError(t, err)

		stored, err := env.store.GetMessage(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Nil(t, stored.FromID)
		assert.Nil(t, stored.ToID)
	})
}

// TestEndToEndScenario walks the full demo flow: two agents register, one
// sends a request, the target's topic and the broadcast feed both observe
// it, and the envelope is durably queryable.
func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, salesBody := env.postJSON(t, "/api/agents/register", map[string]interface{}{
		"agentName": "sales-agent", "agentType": "parent",
		"capabilities": []string{"sales-analysis"},
	})
	require.Equal(t, true, salesBody["success"])

	_, forecastBody := env.postJSON(t, "/api/agents/register", map[string]interface{}{
		"agentName": "demand-forecasting-agent", "agentType": "sub-agent",
		"capabilities": []string{"forecasting"},
	})
	require.Equal(t, true, forecastBody["success"])

	targetSub, err := env.bus.Subscribe(ctx, bus.AgentTopic("demand-forecasting-agent"))
	require.NoError(t, err)
	defer targetSub.Unsubscribe()

	broadcastSub, err := env.bus.Subscribe(ctx, bus.BroadcastTopic)
	require.NoError(t, err)
	defer broadcastSub.Unsubscribe()

	resp, sendBody := env.postJSON(t, "/api/messages/send", map[string]interface{}{
		"fromAgent":   "sales-agent",
		"toAgent":     "demand-forecasting-agent",
		"messageType": "request",
		"payload":     map[string]interface{}{"action": "forecast", "content": "forecast Q2 demand"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, sendBody["success"])

	messageID, err := uuid.Parse(sendBody["messageId"].(string))
	require.NoError(t, err)

	// Durable before published: the envelope is queryable immediately.
	stored, err := env.store.GetMessage(ctx, messageID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.MessageStatusPending, stored.Status)

	var delivery models.Delivery
	select {
	case event := <-targetSub.Events():
		require.NoError(t, json.Unmarshal(event, &delivery))
	case <-time.After(time.Second):
		t.Fatal("target never received the delivery")
	}
	assert.Equal(t, messageID.String(), delivery.MessageID)
	assert.Equal(t, "sales-agent", delivery.FromAgent)
	assert.JSONEq(t, `{"action":"forecast","content":"forecast Q2 demand"}`, string(delivery.Payload))

	var flow models.FlowEvent
	select {
	case event := <-broadcastSub.Events():
		require.NoError(t, json.Unmarshal(event, &flow))
	case <-time.After(time.Second):
		t.Fatal("broadcast observer never received the projection")
	}
	assert.Equal(t, messageID.String(), flow.ID)
	assert.Equal(t, "forecast Q2 demand", flow.Message.Content)

	// Dashboard read surface reflects the activity.
	_, stats := env.getJSON(t, "/api/stats")
	assert.EqualValues(t, 2, stats["total_agents"])
	assert.EqualValues(t, 1, stats["total_messages"])
}

func TestObserverFeed(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the feed a moment to attach its broadcast subscription.
	time.Sleep(200 * time.Millisecond)

	_, sendBody := env.postJSON(t, "/api/messages/send", map[string]interface{}{
		"fromAgent":   "sales-agent",
		"toAgent":     "demand-forecasting-agent",
		"messageType": "request",
		"payload":     map[string]interface{}{"content": "hello observers"},
	})
	require.Equal(t, true, sendBody["success"])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var flow models.FlowEvent
	require.NoError(t, json.Unmarshal(data, &flow))
	assert.Equal(t, sendBody["messageId"], flow.ID)
	assert.Equal(t, "hello observers", flow.Message.Content)
}

func TestAgentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	_, reg := env.postJSON(t, "/api/agents/register", map[string]interface{}{
		"agentName": "sales-agent", "agentType": "parent",
	})
	agentID := reg["agentId"].(string)

	resp, list := env.getJSON(t, "/api/agents")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, list["total"])

	resp, profile := env.getJSON(t, "/api/agents/"+agentID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sales-agent", profile["name"])

	resp, _ = env.getJSON(t, "/api/agents/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.getJSON(t, "/api/agents/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
