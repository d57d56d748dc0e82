// Package hubclient provides a client for the agent hub's HTTP entry
// points. Agent runtimes use it to register and to send messages; inbound
// delivery arrives on the agent's bus topic, not over HTTP.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a hub API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new hub client.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterParams carries a registration request.
type RegisterParams struct {
	AgentName     string   `json:"agentName"`
	AgentType     string   `json:"agentType"`
	Endpoint      string   `json:"endpoint"`
	Capabilities  []string `json:"capabilities"`
	ParentAgentID string   `json:"parentAgentId,omitempty"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	AgentID string `json:"agentId"`
	Error   string `json:"error"`
}

// Register registers the agent with the hub and returns its durable id.
// Safe to repeat: registration is an upsert keyed by agent name.
func (c *Client) Register(ctx context.Context, params RegisterParams) (string, error) {
	var resp registerResponse
	if err := c.post(ctx, "/api/agents/register", params, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("registration rejected: %s", resp.Error)
	}
	return resp.AgentID, nil
}

type sendRequest struct {
	FromAgent   string          `json:"fromAgent"`
	ToAgent     string          `json:"toAgent"`
	MessageType string          `json:"messageType"`
	Payload     json.RawMessage `json:"payload"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

// Send routes a message through the hub and returns the message id.
func (c *Client) Send(ctx context.Context, from, to, kind string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	err = c.post(ctx, "/api/messages/send", sendRequest{
		FromAgent:   from,
		ToAgent:     to,
		MessageType: kind,
		Payload:     body,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("send rejected: %s", resp.Error)
	}
	return resp.MessageID, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
