package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"code-courier/internal/ratelimit"
	"code-courier/internal/workers"
)

// ExtractionRunner triggers one extraction run. Satisfied by the coordinator.
type ExtractionRunner interface {
	RunExtraction(ownerID string, onlyNew bool) (*workers.RunSummary, error)
}

// ProcessHandler handles manual extraction trigger requests
type ProcessHandler struct {
	runner  ExtractionRunner
	limiter *ratelimit.TriggerLimiter
}

// NewProcessHandler creates a new process handler
func NewProcessHandler(runner ExtractionRunner, limiter *ratelimit.TriggerLimiter) *ProcessHandler {
	return &ProcessHandler{runner: runner, limiter: limiter}
}

// ProcessRequest is the manual trigger payload.
type ProcessRequest struct {
	OwnerID string `json:"owner_id"`
	OnlyNew bool   `json:"only_new"`
	Force   bool   `json:"force"`
}

// Process handles POST /api/gmail/process. Returns 429 while the owner's
// trigger cooldown is active and 409 when a run is already in progress.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	result := h.limiter.Check(req.OwnerID, req.Force)
	if result.ShouldBlock {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":            "Extraction was triggered recently",
			"retry_after_secs": int(result.RemainingTime.Seconds()),
		})
		return
	}

	summary, err := h.runner.RunExtraction(req.OwnerID, req.OnlyNew)
	if err != nil {
		log.Printf("ERROR: Extraction run failed for %s: %v", req.OwnerID, err)
		http.Error(w, fmt.Sprintf("Extraction failed: %v", err), http.StatusInternalServerError)
		return
	}

	if summary.Busy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "An extraction run is already in progress for this owner",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}
