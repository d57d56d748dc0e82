package handlers

import (
	"context"
	"net/http"
	"os/exec"
	"time"
)

// TestRunResponse represents the test runner response.
type TestRunResponse struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RunTests executes the repository test suite and returns the combined
// output. Exposed so the dashboard can trigger a self-check of the running
// system.
func (h *Handler) RunTests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "test", "./...")
	output, err := cmd.CombinedOutput()

	resp := TestRunResponse{
		Success:   err == nil,
		Output:    string(output),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	h.JSON(w, http.StatusOK, resp)
}
