/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the mobile-money ledger service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Initialize the zap logger
  2. Load configuration (environment + optional .env, flags override)
  3. Initialize SQLite store
  4. Seed the merchant directory from YAML
  5. Wire engine, queries, and API handler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr       HTTP listen address (default from HTTP_ADDR)
  -db         SQLite database path (default from DATABASE_PATH)
              Use ":memory:" for an in-memory database
  -merchants  Merchant directory YAML (default from MERCHANTS_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Environment keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kalpay/ledger-engine/api"
	"github.com/kalpay/ledger-engine/config"
	"github.com/kalpay/ledger-engine/directory"
	"github.com/kalpay/ledger-engine/ledger"
	"github.com/kalpay/ledger-engine/notify"
	"github.com/kalpay/ledger-engine/store/sqlite"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := config.Load()

	// Flags override environment
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	merchantsFile := flag.String("merchants", cfg.MerchantsFile, "merchant directory YAML")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Seed the merchant directory; a missing file is not fatal,
	// payments just won't resolve any codes
	if err := directory.LoadAndSeed(context.Background(), store, *merchantsFile); err != nil {
		logger.Warn("failed to seed merchant directory", zap.Error(err))
	}

	// Account notifications
	var observer ledger.AccountObserver = notify.Logger{}
	if cfg.NotifyWebhookURL != "" {
		observer = notify.NewWebhook(cfg.NotifyWebhookURL)
	}

	// Wire the engine and query layer
	refs := ledger.NewReferenceGenerator(cfg.ReferencePrefix, ledger.DefaultReferenceLength)
	engine := ledger.NewEngine(store, refs,
		ledger.Limits{Min: cfg.MinAmount, Max: cfg.MaxAmount},
		cfg.CountryPrefix)
	engine.RefRetries = cfg.ReferenceRetries
	engine.Observer = observer

	queries := ledger.NewQueries(store)
	handler := api.NewHandler(engine, queries, store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", *addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
