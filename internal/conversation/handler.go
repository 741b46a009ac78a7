package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

const defaultListLimit = 100

// Handler exposes the admin surface over conversations: list, inspect,
// delete, and volume stats.
type Handler struct {
	db     DB
	store  Store
	logger *logging.Logger
}

func NewHandler(db DB, store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{db: db, store: store, logger: logger}
}

// Routes mounts the conversation admin endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/conversations", h.List)
	r.Get("/conversations/stats", h.GetStats)
	r.Get("/conversations/{id}", h.Get)
	r.Delete("/conversations/{id}", h.Delete)
}

// List returns conversations, newest activity first, optionally filtered by
// stage. Route: GET /admin/conversations?stage=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var stage *Stage
	if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
		parsed, ok := ParseStage(raw)
		if !ok {
			http.Error(w, "unknown stage", http.StatusBadRequest)
			return
		}
		stage = &parsed
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	conversations, err := h.store.List(r.Context(), h.db, stage, limit)
	if err != nil {
		h.logger.Error("list conversations failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if conversations == nil {
		conversations = []*Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

// Get returns one conversation. Route: GET /admin/conversations/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	conv, err := h.store.GetByID(r.Context(), h.db, id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get conversation failed", "conversation_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Delete removes a conversation. Route: DELETE /admin/conversations/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "id must be a UUID", http.StatusBadRequest)
		return
	}

	err = h.store.Delete(r.Context(), h.db, id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("delete conversation failed", "conversation_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats returns stage counts. Route: GET /admin/conversations/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), h.db)
	if err != nil {
		h.logger.Error("conversation stats failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
