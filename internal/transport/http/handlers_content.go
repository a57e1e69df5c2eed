package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"atelier/internal/content"
	"atelier/internal/platform/middleware"
	dErrors "atelier/pkg/domain-errors"
)

// ContentService is the interface the content handlers depend on.
type ContentService interface {
	Fetch(ctx context.Context, topic content.Topic, filter content.Filter) ([]content.Entity, error)
	Upsert(ctx context.Context, topic content.Topic, id uuid.UUID, payload map[string]any) (content.Entity, error)
	Delete(ctx context.Context, topic content.Topic, id uuid.UUID) error
}

// ContentHandler exposes the per-topic CRUD surface used by the admin
// dashboard and the public pages.
type ContentHandler struct {
	service ContentService
	logger  *slog.Logger
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(service ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{service: service, logger: logger}
}

// Register mounts the content routes.
func (h *ContentHandler) Register(r chi.Router) {
	r.Get("/content/{topic}", h.handleList)
	r.Post("/content/{topic}", h.handleCreate)
	r.Put("/content/{topic}/{id}", h.handleUpdate)
	r.Delete("/content/{topic}/{id}", h.handleDelete)
}

func (h *ContentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topicParam(w, r)
	if !ok {
		return
	}

	filter := content.Filter{}
	if field := r.URL.Query().Get("filter_field"); field != "" {
		filter = content.Filter{Field: field, Equals: r.URL.Query().Get("filter_value")}
	}

	entities, err := h.service.Fetch(r.Context(), topic, filter)
	if err != nil {
		h.logError(r, "list content failed", err)
		WriteError(w, err)
		return
	}
	if entities == nil {
		entities = []content.Entity{}
	}
	WriteJSON(w, http.StatusOK, entities)
}

func (h *ContentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, uuid.Nil)
}

func (h *ContentHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	h.upsert(w, r, id)
}

func (h *ContentHandler) upsert(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	topic, ok := h.topicParam(w, r)
	if !ok {
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	entity, err := h.service.Upsert(r.Context(), topic, id, payload)
	if err != nil {
		h.logError(r, "upsert content failed", err)
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if id == uuid.Nil {
		status = http.StatusCreated
	}
	WriteJSON(w, status, entity)
}

func (h *ContentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.topicParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), topic, id); err != nil {
		h.logError(r, "delete content failed", err)
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) topicParam(w http.ResponseWriter, r *http.Request) (content.Topic, bool) {
	topic, err := content.ParseTopic(chi.URLParam(r, "topic"))
	if err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return "", false
	}
	return topic, true
}

func (h *ContentHandler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid entity id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *ContentHandler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"path", r.URL.Path,
		"error", err.Error(),
	)
}
