// Package httptransport assembles the root router: shared middleware,
// health and metrics endpoints, and the feature handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"desarquivamento/internal/platform/metrics"
	"desarquivamento/internal/platform/middleware"
	"desarquivamento/pkg/platform/httputil"
)

const readyTimeout = 2 * time.Second

// Registrar is implemented by feature handlers.
type Registrar interface {
	Register(r chi.Router)
}

// RouterDeps carries what the root router needs. Metrics, Gatherer and Ready
// may be nil.
type RouterDeps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Ready    func(ctx context.Context) error
}

// NewRouter wires the public endpoints. Every route goes through request id,
// panic recovery, access logging and latency tracking.
func NewRouter(deps RouterDeps, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger, deps.Metrics))
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(deps.Ready))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

func readinessHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
