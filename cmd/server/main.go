/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Wire the domain services and PDF renderer
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables:
    -port     / PORT            HTTP server port (default: 8080)
    -db       / DB_PATH         SQLite database path (default: billing.db)
                                Use ":memory:" for in-memory database
    -out      / INVOICE_DIR     Rendered PDF root (default: ./invoices)
    -prefix   / INVOICE_PREFIX  Invoice number prefix (default: LS)
    -org      / ORG_NAME        Organization name printed on invoices
                LOG_LEVEL       debug, info, warn, error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tutora/billing-engine/api"
	"github.com/tutora/billing-engine/attendance"
	"github.com/tutora/billing-engine/catalog"
	"github.com/tutora/billing-engine/invoicing"
	"github.com/tutora/billing-engine/payments"
	"github.com/tutora/billing-engine/pdf"
	"github.com/tutora/billing-engine/pkg/logging"
	"github.com/tutora/billing-engine/store/sqlite"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real env vars win over file values.
	_ = godotenv.Load()

	port := flag.String("port", envOr("PORT", "8080"), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "billing.db"), "SQLite database path")
	outDir := flag.String("out", envOr("INVOICE_DIR", "./invoices"), "rendered invoice PDF root")
	prefix := flag.String("prefix", envOr("INVOICE_PREFIX", "LS"), "invoice number prefix")
	orgName := flag.String("org", envOr("ORG_NAME", ""), "organization name printed on invoices")
	flag.Parse()

	log := logging.New()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	renderer := pdf.NewRenderer(pdf.Options{
		OutDir:  *outDir,
		OrgName: *orgName,
	})

	cat := catalog.New(store, log)
	att := attendance.New(store, log)
	inv := invoicing.New(store, renderer, *prefix, log)
	pay := payments.New(store, log)

	handler := api.NewHandler(cat, att, inv, pay, *outDir)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", fmt.Sprintf("http://localhost:%s", *port), "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "err", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
