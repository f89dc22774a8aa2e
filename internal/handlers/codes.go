package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"code-courier/internal/database"

	"github.com/go-chi/chi/v5"
)

// CodeHandler handles HTTP requests for verification codes
type CodeHandler struct {
	db *database.DB
}

// NewCodeHandler creates a new code handler
func NewCodeHandler(db *database.DB) *CodeHandler {
	return &CodeHandler{db: db}
}

// GetCodes handles GET /api/codes?owner_id=...&airline=...&limit=...&offset=...
func (h *CodeHandler) GetCodes(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}

	airline := strings.ToUpper(r.URL.Query().Get("airline"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	codes, err := h.db.Codes.List(ownerID, airline, limit, offset)
	if err != nil {
		log.Printf("ERROR: Failed to list codes: %v", err)
		http.Error(w, fmt.Sprintf("Failed to list codes: %v", err), http.StatusInternalServerError)
		return
	}
	if codes == nil {
		codes = []*database.VerificationCode{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(codes)
}

// GetCodeByID handles GET /api/codes/{id}
func (h *CodeHandler) GetCodeByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid code ID", http.StatusBadRequest)
		return
	}

	code, err := h.db.Codes.GetByID(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Code not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to get code %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to get code: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(code)
}

// DeactivateCode handles PATCH /api/codes/{id}/deactivate
func (h *CodeHandler) DeactivateCode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid code ID", http.StatusBadRequest)
		return
	}

	if err := h.db.Codes.Deactivate(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Code not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to deactivate code %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to deactivate code: %v", err), http.StatusInternalServerError)
		return
	}

	code, err := h.db.Codes.GetByID(id)
	if err != nil {
		log.Printf("ERROR: Failed to reload code %d: %v", id, err)
		http.Error(w, fmt.Sprintf("Failed to reload code: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(code)
}
