// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the category manager server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bcm/internal/cache"
	"bcm/internal/config"
	"bcm/internal/database"
	"bcm/internal/handlers"
	"bcm/internal/metrics"
	"bcm/internal/middleware"
	"bcm/internal/render"
	"bcm/internal/router"
	"bcm/internal/session"
	"bcm/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Text logs in development, JSON everywhere else.
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
	)

	db, err := database.Connect(cfg.StoreDriver, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.StoreDriver); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	collector := metrics.NewCollector("bcm")

	// Valkey holds the term cache and the sessions. Development runs
	// without it; production requires it.
	var (
		termCache *cache.TermCache
		backend   session.Backend
	)
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyAddr(), cfg.ValkeyPassword)
	switch {
	case err == nil:
		defer valkeyClient.Close()
		termCache = cache.NewTermCache(valkeyClient, cfg.TermCacheTTL)
		termCache.OnLookup(collector.CacheLookup)
		backend = session.NewValkeyBackend(valkeyClient)
	case cfg.IsDev():
		slog.Warn("valkey unavailable, using in-memory sessions and no term cache", "error", err)
		backend = session.NewMemoryBackend()
	default:
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(backend, secureCookies)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	invalidations := store.NewInvalidationLog(db)
	terms := handlers.NewTerms(
		store.NewTermStore(db),
		termCache,
		invalidations,
		renderer,
		cfg.DefaultCategory,
	)
	if termCache != nil {
		// Term lists cached by a previous run may predate its last write.
		flushTermCache(termCache)
	}
	reportInvalidations(invalidations)

	limiter := middleware.NewRateLimiter(cfg.MutationRateLimit, time.Minute)
	defer limiter.Stop()

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:" + cfg.Port}
	}

	r := router.New(router.Deps{
		Sessions:       sessionStore,
		Admin:          handlers.NewAdmin(renderer, terms, sessionStore),
		Ajax:           handlers.NewAjax(terms, collector),
		Metrics:        collector,
		RateLimiter:    limiter,
		AllowedOrigins: origins,
		SecureCookies:  secureCookies,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func flushTermCache(tc *cache.TermCache) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tc.InvalidateAll(ctx)
}

// invalidationLogKeep bounds the invalidation log kept across restarts.
const invalidationLogKeep = 10000

func reportInvalidations(log *store.InvalidationLog) {
	latest, err := log.Latest()
	if err != nil {
		slog.Warn("cache invalidation log unavailable", "error", err)
		return
	}
	for taxonomy, inv := range latest {
		slog.Info("last term cache invalidation",
			"taxonomy", taxonomy,
			"term_id", inv.TermID,
			"action", inv.Action,
			"at", inv.At,
		)
	}
	if n, err := log.Trim(invalidationLogKeep); err != nil {
		slog.Warn("failed to trim cache invalidation log", "error", err)
	} else if n > 0 {
		slog.Info("cache invalidation log trimmed", "removed", n)
	}
}
