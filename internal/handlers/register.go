package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/aaronmeis/mock-agent-supplychain/internal/hub"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	AgentName     string   `json:"agentName"`
	AgentType     string   `json:"agentType"`
	Endpoint      string   `json:"endpoint"`
	Capabilities  []string `json:"capabilities"`
	ParentAgentID string   `json:"parentAgentId,omitempty"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	Success bool   `json:"success"`
	AgentID string `json:"agentId"`
}

// Register handles agent registration. Registration is an idempotent upsert
// keyed by agent name.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.AgentName)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "agentName is required")
		return
	}

	var parentID *uuid.UUID
	if req.ParentAgentID != "" {
		id, err := uuid.Parse(req.ParentAgentID)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid parentAgentId format")
			return
		}
		parentID = &id
	}

	agent, err := h.hub.Register(r.Context(), hub.RegisterParams{
		Name:         name,
		Kind:         req.AgentType,
		Endpoint:     req.Endpoint,
		Capabilities: req.Capabilities,
		ParentID:     parentID,
	})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.JSON(w, http.StatusOK, RegisterResponse{
		Success: true,
		AgentID: agent.ID.String(),
	})
}
