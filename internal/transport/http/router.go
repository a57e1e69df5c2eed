package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atelier/internal/platform/metrics"
	"atelier/internal/platform/middleware"
)

// Registrar is anything that mounts routes on the API router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter assembles the full HTTP surface: the JSON API behind the
// middleware chain plus the bare health and metrics endpoints.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, handlers ...Registrar) http.Handler {
	root := chi.NewRouter()

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(middleware.Recovery(logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(logger))
	api.Use(middleware.Timeout(30 * time.Second))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.Latency(m))
	for _, h := range handlers {
		h.Register(api)
	}
	root.Mount("/", api)

	return root
}
