package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tripyplan/tripy-auth/internal/config"
	"github.com/tripyplan/tripy-auth/internal/crypto"
	"github.com/tripyplan/tripy-auth/internal/handler"
	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/middleware"
	"github.com/tripyplan/tripy-auth/internal/repository"
	"github.com/tripyplan/tripy-auth/internal/service"
)

func main() {
	os.Exit(serve())
}

// serve runs the server until a signal arrives and returns the process exit code.
// Deferred cleanup runs before main exits.
func serve() int {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("auth-server", "").Error().Err(err).Msg("invalid configuration")
		return 1
	}

	log := logger.NewLogger("auth-server", cfg.LogLevel)
	if envErr != nil {
		log.Warn().Msg("no .env file found, using environment variables")
	}
	if !cfg.IsProduction() && cfg.Token.Secret == config.DevTokenSecret {
		log.Warn().Msg("using the development token secret")
	}

	ctx := context.Background()

	store, err := repository.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open credential store")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("failed to close credential store")
		}
	}()

	hasher, err := crypto.NewHasher(cfg.Hash.Algorithm, cfg.Hash.BcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("failed to build password hasher")
		return 1
	}

	issuer := crypto.NewIssuer(crypto.IssuerConfig{
		Secret:   cfg.Token.Secret,
		Issuer:   cfg.Token.Issuer,
		Audience: cfg.Token.Audience,
		TTL:      cfg.Token.TTL,
	})

	authService := service.NewAuthService(store, hasher, issuer)

	var g run.Group

	routerCfg := handler.RouterConfig{
		TokenHeader: cfg.Token.Header,
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.Metrics {
		routerCfg.Registry = prometheus.NewRegistry()
		routerCfg.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		routerCfg.RateLimiter = limiter

		sweepCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			limiter.Run(sweepCtx)
			return nil
		}, func(error) {
			cancel()
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(authService, routerCfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Add(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("storage", cfg.Storage.Driver).
			Str("hash", cfg.Hash.Algorithm).
			Msg("server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Err(err).Msg("server forced shutdown")
		}
	})

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	var sig run.SignalError
	if err := g.Run(); err != nil && !errors.As(err, &sig) {
		log.Err(err).Msg("server error")
		return 1
	}

	log.Info().Msg("server stopped")
	return 0
}
