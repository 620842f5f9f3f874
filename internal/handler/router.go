package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/middleware"
	"github.com/tripyplan/tripy-auth/internal/service"
)

// RouterConfig holds the HTTP-level knobs of the service.
type RouterConfig struct {
	TokenHeader string
	CORSOrigins []string
	// RateLimiter guards /auth and /check-account. Nil disables limiting.
	RateLimiter *middleware.RateLimiter
	// Registry, when set, receives the HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry
}

// NewRouter wires every route of the auth API.
func NewRouter(svc *service.AuthService, cfg RouterConfig, log *logger.Logger) http.Handler {
	authHandler := NewAuthHandler(svc, cfg.TokenHeader)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	if cfg.Registry != nil {
		r.Use(middleware.NewMetrics(cfg.Registry).Handler)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", cfg.TokenHeader},
	}).Handler)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/", authHandler.HandleHome)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
		r.Post("/auth", authHandler.HandleAuth)
		r.Post("/check-account", authHandler.HandleCheckAccount)
	})

	r.Post("/verify", authHandler.HandleVerify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(svc, cfg.TokenHeader))
		r.Get("/me", authHandler.HandleSession)
	})

	return r
}
