package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/platform/middleware"
	dErrors "atelier/pkg/domain-errors"
)

// LiveView is the reconciler-backed cached view of a topic.
type LiveView interface {
	View(topic content.Topic) ([]content.Entity, bool)
	OnSignal(ctx context.Context, topic content.Topic) error
}

// LiveHandler serves the live-preview surface from the reconciler's cache
// instead of hitting the store per request. A cold cache is primed once;
// after that, cache freshness is entirely signal-driven.
type LiveHandler struct {
	view   LiveView
	logger *slog.Logger
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(view LiveView, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{view: view, logger: logger}
}

// Register mounts the live-view route.
func (h *LiveHandler) Register(r chi.Router) {
	r.Get("/live/{topic}", h.handleView)
}

func (h *LiveHandler) handleView(w http.ResponseWriter, r *http.Request) {
	topic, err := content.ParseTopic(chi.URLParam(r, "topic"))
	if err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	entities, ok := h.view.View(topic)
	if !ok {
		// Cold cache: prime it with one reconciliation.
		if err := h.view.OnSignal(r.Context(), topic); err != nil {
			h.logger.WarnContext(r.Context(), "live view priming failed",
				"request_id", middleware.GetRequestID(r.Context()),
				"topic", string(topic),
				"error", err.Error(),
			)
			WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "live view unavailable", err))
			return
		}
		entities, _ = h.view.View(topic)
	}

	if entities == nil {
		entities = []content.Entity{}
	}
	WriteJSON(w, http.StatusOK, entities)
}
