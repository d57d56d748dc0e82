package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aaronmeis/mock-agent-supplychain/internal/hub"
)

// SendRequest represents the message send request body. Payload passes
// through the hub unvalidated.
type SendRequest struct {
	FromAgent   string          `json:"fromAgent"`
	ToAgent     string          `json:"toAgent"`
	MessageType string          `json:"messageType"`
	Payload     json.RawMessage `json:"payload"`
}

// SendResponse represents the message send response.
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// Send handles message routing. The sender and target need not be
// registered; the hub stores and publishes regardless.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.FromAgent == "" || req.ToAgent == "" {
		h.Error(w, http.StatusBadRequest, "fromAgent and toAgent are required")
		return
	}
	if req.MessageType == "" {
		h.Error(w, http.StatusBadRequest, "messageType is required")
		return
	}

	id, err := h.hub.Send(r.Context(), hub.SendParams{
		From:    req.FromAgent,
		To:      req.ToAgent,
		Kind:    req.MessageType,
		Payload: req.Payload,
	})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.JSON(w, http.StatusOK, SendResponse{
		Success:   true,
		MessageID: id.String(),
	})
}
