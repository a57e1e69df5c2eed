package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/platform/middleware"
)

// SyncService is the interface the sync-status handlers depend on.
type SyncService interface {
	Status(ctx context.Context) (content.Status, error)
	ForceSync(ctx context.Context) error
}

// SyncHandler exposes the sync-status panel: current per-topic counts and
// the force-sync action that signals every consumer to reconcile.
type SyncHandler struct {
	service SyncService
	logger  *slog.Logger
}

// NewSyncHandler constructs a SyncHandler.
func NewSyncHandler(service SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{service: service, logger: logger}
}

// Register mounts the sync routes.
func (h *SyncHandler) Register(r chi.Router) {
	r.Get("/sync/status", h.handleStatus)
	r.Post("/sync/force", h.handleForce)
}

func (h *SyncHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "sync status failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (h *SyncHandler) handleForce(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ForceSync(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "force sync failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
