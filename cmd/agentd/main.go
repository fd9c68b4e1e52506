package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openherd/agentd/internal/adapter/fileconfig"
	"github.com/openherd/agentd/internal/adapter/filesweep"
	adhttp "github.com/openherd/agentd/internal/adapter/http"
	"github.com/openherd/agentd/internal/adapter/httpcheck"
	adnats "github.com/openherd/agentd/internal/adapter/nats"
	"github.com/openherd/agentd/internal/adapter/natskv"
	adotel "github.com/openherd/agentd/internal/adapter/otel"
	"github.com/openherd/agentd/internal/adapter/postgres"
	"github.com/openherd/agentd/internal/adapter/ristretto"
	"github.com/openherd/agentd/internal/adapter/ws"
	"github.com/openherd/agentd/internal/config"
	"github.com/openherd/agentd/internal/logger"
	"github.com/openherd/agentd/internal/port/configstore"
	"github.com/openherd/agentd/internal/resilience"
	"github.com/openherd/agentd/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store_backend", cfg.Store.Backend,
		"log_level", cfg.Logging.Level,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// NATS (optional): event bus plus the KV config store backend.
	var bus *adnats.Bus
	if cfg.NATS.URL != "" {
		bus, err = adnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = bus.Close() }()
	}

	var store configstore.Store
	switch cfg.Store.Backend {
	case "nats":
		if bus == nil {
			return fmt.Errorf("store backend nats requires a nats url")
		}
		store, err = natskv.New(ctx, bus.JetStream(), cfg.Store.Bucket)
		if err != nil {
			return fmt.Errorf("nats kv store: %w", err)
		}
	default:
		store = fileconfig.New(cfg.Store.Path)
	}

	// PostgreSQL (optional): run history.
	deps := service.InstanceDeps{}
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		deps.Runs = postgres.NewRunStore(pool)
		slog.Info("postgres connected, run history enabled")
	}

	metrics, err := adotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	deps.Metrics = metrics

	hub := ws.NewHub()
	deps.Hub = hub
	if bus != nil {
		deps.Bus = bus
	}

	// --- Agent types ---
	httpcheck.Register()
	filesweep.Register()

	// --- Registry and manager ---
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	registry := service.NewRegistry(agentTypeSource(), store, breaker, log)
	registry.SetInstanceDeps(deps)
	manager := service.NewManager(registry, log)

	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	manager.LoadAgents(ctx)

	// --- HTTP ---
	statusCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("status cache: %w", err)
	}
	defer statusCache.Close()

	handlers := &adhttp.Handlers{
		Manager:   manager,
		Runs:      deps.Runs,
		Cache:     statusCache,
		StatusTTL: cfg.Cache.StatusTTL,
	}

	r := chi.NewRouter()
	r.Use(adhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(adhttp.RequestID)
	r.Use(adhttp.Logger)
	r.Use(adotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(adhttp.APIKeyAuth(cfg.Server.APIKeyHash))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	adhttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	manager.Shutdown(shutdownCtx)
	return nil
}
