package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/internal/tasks"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// DeliveriesHandler exposes the delivery task admin endpoints.
type DeliveriesHandler struct {
	repo   tasks.Repository
	logger *logging.Logger
}

func NewDeliveriesHandler(repo tasks.Repository, logger *logging.Logger) *DeliveriesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DeliveriesHandler{repo: repo, logger: logger}
}

// Routes mounts the delivery endpoints.
func (h *DeliveriesHandler) Routes(r chi.Router) {
	r.Get("/deliveries", h.List)
	r.Get("/deliveries/{id}", h.Get)
	r.Patch("/deliveries/{id}/status", h.UpdateStatus)
}

// List returns delivery tasks, optionally filtered by status.
// Route: GET /admin/deliveries?status=
func (h *DeliveriesHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *tasks.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := tasks.ParseStatus(raw)
		if !ok {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		status = &parsed
	}

	list, err := h.repo.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list delivery tasks failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []tasks.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns one delivery task. Route: GET /admin/deliveries/{id}
func (h *DeliveriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	task, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		http.Error(w, "delivery task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get delivery task failed", "task_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus transitions a task. Route: PATCH /admin/deliveries/{id}/status
func (h *DeliveriesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	status, ok := tasks.ParseStatus(req.Status)
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	err = h.repo.UpdateStatus(r.Context(), id, status)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		http.Error(w, "delivery task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("update delivery status failed", "task_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
