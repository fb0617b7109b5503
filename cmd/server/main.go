package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collection-backend/internal/auth"
	"collection-backend/internal/cache"
	"collection-backend/internal/config"
	"collection-backend/internal/database"
	"collection-backend/internal/db"
	"collection-backend/internal/handlers"
	"collection-backend/internal/health"
	h "collection-backend/internal/http"
	"collection-backend/internal/logger"
	"collection-backend/internal/middleware"
	"collection-backend/internal/repositories"
	"collection-backend/internal/services"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer conn.Close()
	log.Info().Str("driver", conn.Dialect.Name).Msg("database connected")

	// Run database migrations
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.NewMigrator(conn.DB, conn.Dialect.Name, log).RunMigrations(migrateCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if *migrateOnly {
		return
	}

	// Redis is optional: without it every request resolves identity from the database
	identityCache, err := cache.Connect(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("identity cache unavailable, continuing without it")
		identityCache = nil
	}
	var cachePinger health.Pinger
	if identityCache != nil {
		defer identityCache.Close()
		cachePinger = identityCache
	}

	policy, err := services.PolicyByName(cfg.Ledger.OvercollectionPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ledger configuration")
	}

	store := repositories.NewStore(conn.DB, conn.Dialect)
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize services
	employeeService := services.NewEmployeeService(store, jwtManager, identityCache)
	ledgerService := services.NewLedgerService(store)
	collectionService := services.NewCollectionService(store, policy)
	handoverService := services.NewHandoverService(store)
	reconciliationService := services.NewReconciliationService(store, cfg.Reconciliation.BlockAfterClose)

	router := h.NewRouter(
		h.Handlers{
			Auth:           handlers.NewAuthHandler(employeeService),
			Employees:      handlers.NewEmployeeHandler(employeeService, handoverService),
			Shops:          handlers.NewShopHandler(ledgerService),
			Collections:    handlers.NewCollectionHandler(collectionService),
			Reconciliation: handlers.NewReconciliationHandler(reconciliationService),
			Health:         handlers.NewHealthHandler(health.NewHealthChecker(conn, cachePinger)),
		},
		middleware.NewAuthMiddleware(jwtManager, employeeService),
		middleware.NewCORS(cfg),
		log,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("overcollection_policy", cfg.Ledger.OvercollectionPolicy).
			Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
