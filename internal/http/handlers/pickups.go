package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/internal/pickups"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// PickupsHandler exposes the pickup request admin endpoints.
type PickupsHandler struct {
	repo   pickups.Repository
	logger *logging.Logger
}

func NewPickupsHandler(repo pickups.Repository, logger *logging.Logger) *PickupsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PickupsHandler{repo: repo, logger: logger}
}

// Routes mounts the pickup endpoints.
func (h *PickupsHandler) Routes(r chi.Router) {
	r.Get("/pickups", h.List)
	r.Get("/pickups/{id}", h.Get)
	r.Patch("/pickups/{id}/status", h.UpdateStatus)
}

// List returns pickup requests, optionally filtered by status.
// Route: GET /admin/pickups?status=
func (h *PickupsHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *pickups.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := pickups.ParseStatus(raw)
		if !ok {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		status = &parsed
	}

	list, err := h.repo.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list pickups failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []pickups.Pickup{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns one pickup request. Route: GET /admin/pickups/{id}
func (h *PickupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	pickup, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, pickups.ErrPickupNotFound) {
		http.Error(w, "pickup not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get pickup failed", "pickup_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pickup)
}

// UpdateStatus transitions a pickup. Route: PATCH /admin/pickups/{id}/status
func (h *PickupsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	status, ok := pickups.ParseStatus(req.Status)
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	err = h.repo.UpdateStatus(r.Context(), id, status)
	if errors.Is(err, pickups.ErrPickupNotFound) {
		http.Error(w, "pickup not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("update pickup status failed", "pickup_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
