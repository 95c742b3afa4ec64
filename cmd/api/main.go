// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

// Command api is the entry point for the CrewHQ dashboard gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to Redis (optional, for the shared login lockout).
//  4. Construct the upstream GraphQL executor.
//  5. Wire the session resolver, auth service, and HTTP handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewhq/gateway/internal/api"
	"github.com/crewhq/gateway/internal/auth"
	"github.com/crewhq/gateway/internal/gateway"
	"github.com/crewhq/gateway/internal/loginlimit"
	"github.com/crewhq/gateway/internal/platform/config"
	"github.com/crewhq/gateway/internal/platform/constants"
	redisstore "github.com/crewhq/gateway/internal/platform/redis"
	"github.com/crewhq/gateway/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[CrewHQ] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Login Lockout State ────────────────────────────────────────────
	// Redis makes the lockout shared across replicas. Without it, each
	// replica tracks failures independently (acceptable for single-node
	// deployments, documented in the configuration).
	lockoutPolicy := loginlimit.Policy{
		MaxAttempts:   cfg.LoginMaxAttempts,
		LockoutWindow: cfg.LoginLockoutWindow,
	}

	var limiter loginlimit.Limiter
	var checkCache func() error

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		limiter = loginlimit.NewRedisLimiter(rdb, lockoutPolicy, log)
		checkCache = func() error {
			return redisstore.Ping(context.Background(), rdb)
		}
	} else {
		log.Warn("redis_not_configured", slog.String("effect", "login lockout is per-replica"))
		limiter = loginlimit.NewMemoryLimiter(lockoutPolicy)
	}

	// ── 4. Upstream Executor ──────────────────────────────────────────────
	upstream := gateway.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, log)

	// ── 5. Session Resolution ─────────────────────────────────────────────
	resolver := session.NewResolver(upstream, log)

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckUpstream: func() error {
			probeCtx, probeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer probeCancel()
			// A trivially-answerable document exercises the full wire path.
			_, err := upstream.Call(probeCtx, nil, `query { __typename }`, nil)
			return err
		},
		CheckCache: checkCache,
	}, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(upstream, limiter, log)
	authHandler := auth.NewHandler(authService)
	proxyHandler := api.NewProxyHandler(upstream)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Proxy:     proxyHandler,
	}

	server := api.NewServer(appCtx, cfg, log, resolver, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
