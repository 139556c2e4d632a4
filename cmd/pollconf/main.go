// Command pollconf serves controller poll intervals: the global configuration,
// per-tenant overrides and the administration API around them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/pollconf/internal/cache"
	"github.com/rafaeljc/pollconf/internal/config"
	"github.com/rafaeljc/pollconf/internal/controlapi"
	"github.com/rafaeljc/pollconf/internal/database"
	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/observability"
	"github.com/rafaeljc/pollconf/internal/pollinterval"
	"github.com/rafaeljc/pollconf/internal/reloader"
	"github.com/rafaeljc/pollconf/internal/store"
	"github.com/rafaeljc/pollconf/internal/tenant"
)

const poolMonitorInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("pollconf terminated", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// 2. Infrastructure
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	go database.RunPoolMonitor(ctx, pool, poolMonitorInterval)

	checkers := []observability.Checker{database.NewHealthChecker(pool)}

	var redisClient *redis.Client
	if cfg.Redis.IsConfigured() {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		checkers = append(checkers, cache.NewHealthChecker(redisClient))
	} else {
		log.Warn("redis not configured: global overrides and cross-instance reloads are disabled")
	}

	// 3. Domain
	var source pollinterval.PropertiesSource = pollinterval.StaticSource{
		PollingTime:        cfg.Poll.PollingTime,
		PollingOverdueTime: cfg.Poll.PollingOverdueTime,
		MinPollingTime:     cfg.Poll.MinPollingTime,
		MaxPollingTime:     cfg.Poll.MaxPollingTime,
	}

	var (
		properties controlapi.PropertiesStore
		publisher  controlapi.ReloadPublisher
		subscriber reloader.Subscriber
	)
	if redisClient != nil {
		redisSource := cache.NewRedisPropertiesSource(redisClient, cfg.Poll.PropertiesKey, source)
		bus := cache.NewReloadBus(redisClient, cfg.Poll.ReloadChannel)
		source, properties, publisher, subscriber = redisSource, redisSource, bus, bus
	}

	repo := store.NewPostgresStore(pool, cfg.Database.QueryTimeout)
	resolver := pollinterval.NewResolver(ctx, source, tenant.NewAccessor(repo),
		pollinterval.WithLogger(log),
		pollinterval.WithTenantBoundsEnforced(cfg.Poll.EnforceTenantBounds),
	)

	// 4. Background workers
	worker := reloader.New(log, reloader.Config{Interval: cfg.Poll.ReloadInterval}, resolver, subscriber)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	// 5. Servers
	obs := observability.NewServer(log, &cfg.Observability, checkers...)
	obs.Start()

	api := controlapi.NewAPI(resolver, properties, publisher)
	srv := newHTTPServer(&cfg.Server.Control, api.Router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting control API", slog.String("addr", srv.Addr), slog.Bool("tls", cfg.Server.Control.TLSEnabled))
		var err error
		if cfg.Server.Control.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.Server.Control.TLSCert, cfg.Server.Control.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Wait for a signal or a fatal server error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("control API failed: %w", err)
		}
	}
	stop()

	// 7. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("control API shutdown failed", slog.String("error", err.Error()))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("reloader did not stop before the shutdown timeout")
	}

	log.Info("pollconf stopped")
	return runErr
}

func newHTTPServer(cfg *config.ControlAPIConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
