package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aaronmeis/mock-agent-supplychain/internal/models"
)

// AgentInfo represents an agent in list and profile responses.
type AgentInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Endpoint     string   `json:"endpoint,omitempty"`
	Capabilities []string `json:"capabilities"`
	ParentID     string   `json:"parentId,omitempty"`
	Status       string   `json:"status"`
	RegisteredAt string   `json:"registeredAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

// AgentListResponse represents the agents list response.
type AgentListResponse struct {
	Agents []AgentInfo `json:"agents"`
	Total  int         `json:"total"`
}

// ListAgents handles listing registered agents for the dashboard.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	agents, total, err := h.store.ListAgents(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	infos := make([]AgentInfo, len(agents))
	for i, agent := range agents {
		infos[i] = agentInfo(agent)
	}

	h.JSON(w, http.StatusOK, AgentListResponse{Agents: infos, Total: total})
}

// GetAgent handles agent profile lookup by id.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent ID format")
		return
	}

	agent, err := h.store.GetAgentByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if agent == nil {
		h.Error(w, http.StatusNotFound, "agent not found")
		return
	}

	h.JSON(w, http.StatusOK, agentInfo(*agent))
}

func agentInfo(agent models.Agent) AgentInfo {
	info := AgentInfo{
		ID:           agent.ID.String(),
		Name:         agent.Name,
		Kind:         agent.Kind,
		Endpoint:     agent.Endpoint,
		Capabilities: agent.Capabilities,
		Status:       agent.Status,
		RegisteredAt: agent.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    agent.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if agent.ParentID != nil {
		info.ParentID = agent.ParentID.String()
	}
	return info
}
