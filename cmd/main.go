// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bloodlink/internal/cache"
	"bloodlink/internal/database"
	"bloodlink/internal/handler"
	"bloodlink/internal/model"
	"bloodlink/internal/repository"
	"bloodlink/internal/service"
)

func main() {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL")

	store, err := repository.NewPostgresStore(ctx, pool)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}

	// ── 2. Optional Redis read-cache for the polled endpoints ─────────────
	var readCache service.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rc := cache.NewRedis(addr, cache.DefaultTTL)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, caching disabled", zap.Error(err))
		} else {
			readCache = rc
			logger.Info("redis cache enabled", zap.String("addr", addr))
		}
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	userSvc := service.NewUserService(store)
	inventorySvc := service.NewInventoryService(store, readCache, logger)
	donorSvc := service.NewDonorService(store, logger)
	requestSvc := service.NewRequestService(store, readCache, service.ExactMatch, logger)
	h := handler.New(userSvc, inventorySvc, donorSvc, requestSvc)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)              // recover from panics, return 500
	r.Use(chimiddleware.RequestID)              // attach request IDs
	r.Use(chimiddleware.RealIP)                 // trust X-Forwarded-For
	r.Use(handler.RequestLogger(logger))        // structured access log
	r.Use(handler.CORS)                         // permissive CORS for the dashboards

	// Health
	r.Get("/health", handler.HealthCheck)

	// Open routes: profile creation happens before the identity layer can
	// vouch for the caller; per-bank inventory is public.
	r.Post("/users", h.CreateUser)
	r.Get("/inventory/{bankID}", h.BankInventory)

	// Verified-identity routes
	r.Group(func(r chi.Router) {
		r.Use(handler.RequireUser)

		r.Get("/users/me", h.GetMe)
		r.Get("/blood-banks", h.ListBanks)
		r.Post("/donors", h.RegisterDonor)
		r.Get("/donors/me", h.DonorMe)
		r.Post("/donations", h.CreateDonation)
		r.Post("/blood-requests", h.CreateRequest)
		r.Get("/blood-requests/me", h.MyRequests)

		admin := handler.RequireRole(model.RoleAdmin)
		adminOrHospital := handler.RequireRole(model.RoleAdmin, model.RoleHospital)

		r.With(handler.RequireRole(model.RoleDonor)).Get("/donations/me", h.DonationHistory)
		r.With(admin).Post("/blood-banks", h.CreateBank)
		r.With(admin).Delete("/blood-banks/{id}", h.DeleteBank)
		r.With(admin).Get("/inventory/summary", h.InventorySummary)
		r.With(adminOrHospital).Get("/blood-requests", h.ListRequests)
		r.With(admin).Put("/blood-requests/{id}/status", h.UpdateRequestStatus)
		r.With(admin).Post("/blood-requests/{id}/fulfill", h.FulfillRequest)
		r.With(adminOrHospital).Get("/blood-requests/{id}/match-donors", h.MatchDonors)
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		logger.Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
