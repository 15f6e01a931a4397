package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prodvault/prodvault/internal/auth"
	"github.com/prodvault/prodvault/internal/observability"
	"github.com/prodvault/prodvault/internal/registry"
	"github.com/prodvault/prodvault/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Auth            auth.Middleware
	Metrics         *observability.Metrics
	RegistryHandler *registry.Handler
	AuthHandler     *auth.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter assembles the full HTTP surface.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  p.Logger,
		Config:  p.Config,
		Auth:    p.Auth,
		Metrics: p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	p.RegistryHandler.MountRoutes(r)
	if p.AuthHandler != nil {
		p.AuthHandler.MountRoutes(r)
	}
	if p.JobsHandler != nil {
		r.Route("/jobs", p.JobsHandler.MountRoutes)
	}
	return r
}
