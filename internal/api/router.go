package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// DefaultRateLimit is requests per minute per client IP.
const DefaultRateLimit = 60

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Token enables bearer auth on /weather routes when non-empty.
	Token string
	// RateLimit is requests per minute per IP. Zero means DefaultRateLimit.
	RateLimit int
	// Deps are pinged by /health, keyed by the name reported in the body.
	Deps    map[string]Pinger
	Metrics *Metrics
}

// NewRouter builds the chi router. /health and /metrics are unauthenticated.
// /weather/{city}/history is only mounted when the handlers have an observation log.
func NewRouter(h *Handlers, opts RouterOptions, log *slog.Logger) *chi.Mux {
	limit := opts.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = h.metrics
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/health", HealthHandlerFunc(opts.Deps, log))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/weather/{city}", func(r chi.Router) {
		r.Use(httprate.LimitByIP(limit, time.Minute))
		r.Use(BearerAuth(opts.Token))
		r.Get("/", h.GetWeather)
		r.Post("/refresh", h.RefreshWeather)
		if h.repo != nil {
			r.Get("/history", h.History)
		}
	})

	return r
}
