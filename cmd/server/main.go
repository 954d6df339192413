// Package main is the entry point for the agentic-qe-core planning service.
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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/actions"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/auth"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/config"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/corelog"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/executor"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/goals"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/httpapi"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/persistence"
	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/planner"
	syncengine "github.com/iamthegreatdestroyer/agentic-qe-core/internal/sync"
)

// corsMiddleware adds CORS headers for cross-origin requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// openProvider constructs the configured persistence provider, wiring the
// sync engine in when operating in hybrid mode per spec.md 4.5/4.6.
func openProvider(cfg *config.Config, appLog corelog.Logger) (persistence.Provider, error) {
	dbPath := os.Getenv("AGENTIC_SQLITE_PATH")
	if dbPath == "" {
		dbPath = "agentic.db"
	}

	local, err := persistence.OpenLocalWithMigrations(dbPath, cfg.MigrationsPath, appLog)
	if err != nil {
		return nil, fmt.Errorf("open local provider: %w", err)
	}

	switch cfg.Persistence.ProviderType {
	case "hybrid":
		remote := persistence.NewInMemoryRemote()
		syncCfg := syncengine.Config{
			SyncInterval: time.Duration(cfg.Persistence.SyncIntervalMs) * time.Millisecond,
			Conflict:     syncengine.StrategyNewest,
		}
		return persistence.NewHybrid(local, remote, syncCfg, appLog), nil
	default:
		return local, nil
	}
}

func main() {
	// Load configuration
	cfg := config.Load()
	appLog := corelog.New(cfg.LogLevel)

	provider, err := openProvider(cfg, appLog)
	if err != nil {
		log.Fatalf("Could not initialize persistence provider: %v", err)
	}
	if err := provider.Initialize(context.Background()); err != nil {
		log.Fatalf("Could not initialize persistence: %v", err)
	}

	// Initialize the planning core's component registries
	catalog := actions.NewRegistry()
	actions.DefaultCatalog(catalog)
	log.Printf("Registered %d actions", catalog.Count())

	goalCatalog := goals.NewRegistry()
	goals.DefaultCatalog(goalCatalog)
	log.Printf("Registered %d goals", goalCatalog.Count())

	// Initialize the executor fleet: one stub instance per action category so
	// every category the catalog references has somewhere to dispatch to.
	// A production deployment wires a real Registry/Dispatcher pair over its
	// actual executor fleet here instead.
	execRegistry := executor.NewStubRegistry()
	seenCategory := make(map[string]bool)
	for _, a := range catalog.All() {
		category := string(a.Category)
		if category == "" || seenCategory[category] {
			continue
		}
		seenCategory[category] = true
		execRegistry.Register(category+"-executor", category)
	}
	log.Printf("Registered %d executors", len(execRegistry.All()))

	corePlanner := planner.New(catalog)

	// Initialize handlers
	apiHandler := httpapi.NewHandler(corePlanner, catalog, goalCatalog, execRegistry, execRegistry)

	// Initialize authentication middleware
	authMiddleware := auth.NewMiddleware(&cfg.OIDC, appLog)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	// Health check endpoint (no auth required)
	r.Get("/health", apiHandler.Health)

	// Planning core routes
	r.Get("/agents", apiHandler.ListExecutors)
	r.With(authMiddleware.Authenticate("executor:invoke")).Post("/agents/{type}/invoke", apiHandler.InvokeExecutor)
	r.With(authMiddleware.Authenticate("plan:write")).Post("/plan", apiHandler.Plan)
	r.With(authMiddleware.Authenticate("workflow:write")).Post("/workflow", apiHandler.Workflow)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Could not gracefully shutdown the server: %v\n", err)
		}
		if err := provider.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down persistence provider: %v", err)
		}
		close(done)
	}()

	log.Printf("Server is starting on %s", addr)
	log.Printf("Health check available at http://localhost%s/health", addr)
	log.Printf("Plan endpoint available at http://localhost%s/plan", addr)
	log.Printf("Workflow endpoint available at http://localhost%s/workflow", addr)
	log.Printf("Executor registry available at http://localhost%s/agents", addr)
	log.Printf("Persistence provider mode: %s", provider.ProviderInfo().Mode)

	if cfg.OIDC.ClientID != "" {
		log.Printf("OIDC authentication enabled")
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", addr, err)
	}

	<-done
	log.Println("Server stopped")
}
