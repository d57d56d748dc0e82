package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// MessageInfo represents a stored envelope in API responses.
type MessageInfo struct {
	ID        string          `json:"id"`
	FromAgent string          `json:"fromAgent"`
	ToAgent   string          `json:"toAgent"`
	Kind      string          `json:"messageType"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"createdAt"`
}

// MessageListResponse represents the recent messages response.
type MessageListResponse struct {
	Messages []MessageInfo `json:"messages"`
}

// RecentMessages handles listing the most recent envelopes for the
// dashboard, newest first.
func (h *Handler) RecentMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > 200 {
		limit = 200
	}

	envs, err := h.store.RecentMessages(r.Context(), limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	messages := make([]MessageInfo, len(envs))
	for i, env := range envs {
		messages[i] = messageInfo(env)
	}

	h.JSON(w, http.StatusOK, MessageListResponse{Messages: messages})
}

func messageInfo(env models.Envelope) MessageInfo {
	return MessageInfo{
		ID:        env.ID.String(),
		FromAgent: env.From,
		ToAgent:   env.To,
		Kind:      env.Kind,
		Payload:   env.Payload,
		Status:    env.Status,
		CreatedAt: env.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
