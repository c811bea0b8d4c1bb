package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhilgowda/feedpulse/internal/api/handler"
	"github.com/nikhilgowda/feedpulse/internal/api/middleware"
	"github.com/nikhilgowda/feedpulse/internal/cache"
	"github.com/nikhilgowda/feedpulse/internal/store"
)

// Dependencies carries everything the HTTP layer needs. All fields are
// required except Cache; without it rate limiting is disabled.
type Dependencies struct {
	Store       store.Store
	Cache       cache.Cache
	Analyzer    handler.Analyzer
	Jobs        handler.Jobs
	QueueHealth handler.QueueHealth

	RateLimitPerMin int
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Cache != nil && deps.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(deps.Cache, deps.RateLimitPerMin))
		}

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", handler.NewSubmitFeedback(deps.Analyzer, deps.Store, deps.Jobs))
			r.Get("/", handler.NewListHistory(deps.Store))
			r.Delete("/", handler.NewClearHistory(deps.Store))
			r.Get("/stats", handler.NewUserStats(deps.Store))
			r.Get("/{jobID}", handler.NewGetResult(deps.Jobs, deps.Store))
		})

		r.Get("/health", handler.NewHealth(deps.Store, deps.QueueHealth))
		r.Get("/health/queue", handler.NewQueueHealth(deps.QueueHealth))
	})

	return r
}
