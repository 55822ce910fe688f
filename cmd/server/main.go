/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the workforce attendance and leave server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env, .env) and parse command-line overrides
  2. Open the configured store (SQLite or PostgreSQL)
  3. Build the domain services with the configured policy and timezone
  4. Configure HTTP router and start the stale leave expiry scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port
  -db      SQLite database path; ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the expiry scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/workforce.db"
  DB_DRIVER=postgres DATABASE_URL=postgres://... ./server
  TIMEZONE=Africa/Johannesburg LOG_FORMAT=json ./server -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/workforce-engine/api"
	"github.com/warp/workforce-engine/config"
	"github.com/warp/workforce-engine/store/postgres"
	"github.com/warp/workforce-engine/store/sqlite"
	"github.com/warp/workforce-engine/workforce"
)

type ledgerStore interface {
	workforce.TxStore
	api.Pinger
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logger := cfg.Logger()
	slog.SetDefault(logger)

	// Initialize store
	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// Domain services
	directory := workforce.NewDirectory(store)
	directory.Policy = cfg.Policy
	directory.Location = cfg.Location
	directory.Logger = logger

	tracker := workforce.NewTimeTracker(store)
	tracker.Location = cfg.Location
	tracker.Logger = logger

	leave := workforce.NewLeaveEngine(store)
	leave.Policy = cfg.Policy
	leave.Location = cfg.Location
	leave.Logger = logger

	reports := workforce.NewReporter(store)
	reports.Policy = cfg.Policy
	reports.Logger = logger

	metrics := api.NewMetrics()
	handler := api.NewHandler(directory, tracker, leave, reports, metrics)
	routerOpts := api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Health:         store,
	}
	if cfg.RegisterRateLimit != "" {
		routerOpts.RegisterLimit, err = api.RateLimit(cfg.RegisterRateLimit)
		if err != nil {
			logger.Error("invalid REGISTER_RATE_LIMIT", slog.Any("error", err))
			os.Exit(1)
		}
	}
	router := api.NewRouter(handler, routerOpts)

	scheduler := api.NewExpiryScheduler(leave, metrics, logger)
	scheduler.CheckInterval = cfg.ExpireInterval
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("addr", server.Addr),
			slog.String("driver", string(cfg.Driver)),
			slog.String("timezone", cfg.Location.String()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

func openStore(cfg *config.Config) (ledgerStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, cfg.DatabaseURL, postgres.Options{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		})
	default:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.New(cfg.DBPath)
	}
}
