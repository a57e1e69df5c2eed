package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atelier/internal/platform/middleware"
	"atelier/internal/revision"
	dErrors "atelier/pkg/domain-errors"
)

// RevisionService is the interface the revision handlers depend on.
type RevisionService interface {
	Append(ctx context.Context, targetType, targetID string, data map[string]any, comment, authorID string) (revision.Revision, error)
	List(ctx context.Context, targetType, targetID string, limit int) ([]revision.Revision, error)
}

// RevisionsHandler exposes the content history surface: explicit snapshot
// saves and a bounded newest-first listing.
type RevisionsHandler struct {
	service RevisionService
	logger  *slog.Logger
}

// NewRevisionsHandler constructs a RevisionsHandler.
func NewRevisionsHandler(service RevisionService, logger *slog.Logger) *RevisionsHandler {
	return &RevisionsHandler{service: service, logger: logger}
}

// Register mounts the revision routes.
func (h *RevisionsHandler) Register(r chi.Router) {
	r.Get("/revisions/{targetType}/{targetID}", h.handleList)
	r.Post("/revisions/{targetType}/{targetID}", h.handleAppend)
}

type appendRevisionRequest struct {
	Data     map[string]any `json:"revision_data"`
	Comment  string         `json:"revision_comment"`
	AuthorID string         `json:"created_by"`
}

func (h *RevisionsHandler) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rev, err := h.service.Append(r.Context(),
		chi.URLParam(r, "targetType"),
		chi.URLParam(r, "targetID"),
		req.Data, req.Comment, req.AuthorID,
	)
	if err != nil {
		h.logError(r, "append revision failed", err)
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rev)
}

func (h *RevisionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := revision.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	revs, err := h.service.List(r.Context(),
		chi.URLParam(r, "targetType"),
		chi.URLParam(r, "targetID"),
		limit,
	)
	if err != nil {
		h.logError(r, "list revisions failed", err)
		WriteError(w, err)
		return
	}
	if revs == nil {
		revs = []revision.Revision{}
	}
	WriteJSON(w, http.StatusOK, revs)
}

func (h *RevisionsHandler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err.Error(),
	)
}
