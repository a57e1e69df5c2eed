package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atelier/internal/changelog"
	"atelier/internal/platform/middleware"
	dErrors "atelier/pkg/domain-errors"
)

// ChangeLog is the interface the audit-log handlers depend on.
type ChangeLog interface {
	ListRecent(ctx context.Context, limit int) ([]changelog.Record, error)
	Clear(ctx context.Context) error
}

// ChangesHandler exposes the admin change-log surface: a bounded
// newest-first list and an explicit bulk clear.
type ChangesHandler struct {
	log    ChangeLog
	logger *slog.Logger
}

// NewChangesHandler constructs a ChangesHandler.
func NewChangesHandler(log ChangeLog, logger *slog.Logger) *ChangesHandler {
	return &ChangesHandler{log: log, logger: logger}
}

// Register mounts the change-log routes.
func (h *ChangesHandler) Register(r chi.Router) {
	r.Get("/changes", h.handleList)
	r.Delete("/changes", h.handleClear)
}

func (h *ChangesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := changelog.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.log.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.WarnContext(r.Context(), "list change records failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "failed to list changes", err))
		return
	}
	if records == nil {
		records = []changelog.Record{}
	}
	WriteJSON(w, http.StatusOK, records)
}

func (h *ChangesHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.log.Clear(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "clear change log failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "failed to clear changes", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
