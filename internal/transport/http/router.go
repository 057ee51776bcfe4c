// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and translate domain errors; business rules stay out.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presence/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler in this package.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter mounts all feature handlers plus the operational endpoints.
func NewRouter(handlers ...Registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
