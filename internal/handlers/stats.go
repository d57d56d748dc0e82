package handlers

import (
	"net/http"
	"strconv"
	"time"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalAgents    int64         `json:"total_agents"`
	TotalMessages  int64         `json:"total_messages"`
	LastActivity   string        `json:"last_activity"`
	RecentMessages []MessageInfo `json:"recent_messages"`
}

// Stats returns platform statistics for the dashboard landing view.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalAgents, err := h.store.CountAgents(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count agents")
		return
	}

	totalMessages, err := h.store.CountMessages(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	envs, err := h.store.RecentMessages(ctx, 5)
	if err != nil {
		// Non-fatal, continue with empty messages
		envs = nil
	}

	lastActivity := "no activity yet"
	if len(envs) > 0 {
		lastActivity = formatTimeAgo(envs[0].CreatedAt)
	}

	recent := make([]MessageInfo, len(envs))
	for i, env := range envs {
		recent[i] = messageInfo(env)
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalAgents:    totalAgents,
		TotalMessages:  totalMessages,
		LastActivity:   lastActivity,
		RecentMessages: recent,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return strconv.Itoa(mins) + " minutes ago"
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return strconv.Itoa(hours) + " hours ago"
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return strconv.Itoa(days) + " days ago"
	}
}
