package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aaronmeis/mock-agent-supplychain/internal/hub"
	"github.com/aaronmeis/mock-agent-supplychain/internal/store"
)

// Pinger reports transport liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	hub   *hub.Hub
	store store.DataStore
	bus   Pinger // nil when the bus is in-process
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(h *hub.Hub, dataStore store.DataStore, busPinger Pinger) *Handler {
	return &Handler{hub: h, store: dataStore, bus: busPinger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends the uniform failure shape with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]interface{}{"success": false, "error": message})
}

const maxNameBytes = 100

// sanitizeName trims a name, removes control characters, and caps it at
// maxNameBytes. The cut backs up to a rune boundary so a multi-byte name
// never truncates into invalid UTF-8; names become topic keys downstream.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}

	return name
}
