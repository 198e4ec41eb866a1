package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/application/usecase"
	"github.com/agentity/agentity/infrastructure/adapter/postgres"
	"github.com/agentity/agentity/infrastructure/config"
	"github.com/agentity/agentity/infrastructure/http/handler"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/service/executor"
	"github.com/agentity/agentity/infrastructure/service/jwt"
	"github.com/agentity/agentity/infrastructure/service/ledger"
	"github.com/agentity/agentity/infrastructure/service/logger"
	"github.com/agentity/agentity/infrastructure/service/ratelimit"
	"github.com/agentity/agentity/infrastructure/service/sandbox"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "agentity",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"version": "1.0.0",
		"env":     cfg.Environment,
	})

	// Connect to database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, map[string]interface{}{})
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", map[string]interface{}{})

	// Initialize rate limiting service (Redis-backed or noop based on config)
	rateLimiter, err := ratelimit.NewService(ratelimit.Config{
		Enabled:  cfg.RateLimitEnabled,
		RedisURL: cfg.RedisURL,
	}, logrus.New())
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize rate limit service", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		log.Fatalf("Failed to initialize rate limit service: %v", err)
	}

	// Ledger client: RPC-backed when a gateway URL is configured, noop
	// otherwise. With the noop client every agent stays in failed sync and
	// the local store remains fully functional.
	var ledgerClient outbound.LedgerClient
	if cfg.LedgerRPCURL != "" {
		ledgerClient = ledger.NewRPCClient(ledger.ClientConfig{
			BaseURL: cfg.LedgerRPCURL,
			APIKey:  cfg.LedgerAPIKey,
			Timeout: cfg.LedgerTimeout,
		}, structuredLogger)
		structuredLogger.Info(ctx, "Ledger mirroring enabled", map[string]interface{}{
			"rpc_url": cfg.LedgerRPCURL,
		})
	} else {
		ledgerClient = ledger.NewNoopClient(structuredLogger)
		structuredLogger.Warn(ctx, "Ledger mirroring disabled, no LEDGER_RPC_URL configured", map[string]interface{}{})
	}

	sandboxRunner, err := sandbox.NewProcessRunner(sandbox.RunnerConfig{
		Command: cfg.SandboxCommand,
		Timeout: cfg.SandboxTimeout,
	}, structuredLogger)
	if err != nil {
		log.Fatalf("Failed to initialize sandbox runner: %v", err)
	}

	executionEndpoint := executor.NewHTTPExecutor(executor.Config{
		EndpointURL: cfg.ExecutionEndpointURL,
		APIKey:      cfg.ExecutionAPIKey,
		Timeout:     cfg.ExecutionTimeout,
	}, structuredLogger)

	tokenService, err := jwt.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}

	// Initialize repositories
	agentRepo := postgres.NewAgentRepository(db)
	behaviorRepo := postgres.NewBehaviorRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Initialize use cases
	lifecycleUseCase := usecase.NewAgentLifecycleUseCase(
		agentRepo,
		behaviorRepo,
		ledgerClient,
		rateLimiter,
		structuredLogger,
		usecase.LifecycleConfig{
			RegisterSyncWait: cfg.RegisterSyncWait,
			LedgerTimeout:    cfg.LedgerTimeout,
			MirrorAttempts:   cfg.MirrorAttempts,
			MirrorWindow:     cfg.MirrorWindow,
		},
	)
	simulationUseCase := usecase.NewSimulationUseCase(agentRepo, behaviorRepo, sandboxRunner, structuredLogger)
	executionUseCase := usecase.NewExecutionUseCase(agentRepo, simulationUseCase, lifecycleUseCase, executionEndpoint, structuredLogger)
	auditRecorder := usecase.NewAuditRecorder(auditRepo, structuredLogger)
	dashboardUseCase := usecase.NewDashboardUseCase(auditRepo, agentRepo)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	registerLimit := middleware.NewRateLimitMiddleware(rateLimiter, structuredLogger, cfg.RegisterAttempts, cfg.RegisterAttemptsWindow)

	// Initialize handlers and routes
	router := mux.NewRouter()
	handler.NewAgentHandler(lifecycleUseCase, auditRecorder).RegisterRoutes(router, authMiddleware, registerLimit)
	handler.NewSimulationHandler(simulationUseCase, auditRecorder).RegisterRoutes(router, authMiddleware)
	handler.NewExecutionHandler(executionUseCase, auditRecorder).RegisterRoutes(router, authMiddleware)
	handler.NewDashboardHandler(dashboardUseCase).RegisterRoutes(router, authMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	// Background reconciliation: re-mirror agents stuck in pending or
	// failed sync until they claim a ledger identity.
	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	if ledgerClient.Enabled() {
		go reconcileLoop(reconcileCtx, structuredLogger, agentRepo, lifecycleUseCase, cfg.LedgerReconcileInterval, cfg.LedgerReconcileBatch)
	}

	// Compose middleware: CorrelationID then CORS (if enabled)
	var rootHandler http.Handler = middleware.CorrelationIDMiddleware(router)
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		rootHandler = middleware.CORSMiddleware(rootHandler, cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"host": cfg.ServerHost,
				"port": cfg.ServerPort,
			})
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", map[string]interface{}{})
	stopReconcile()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, map[string]interface{}{})
	}
	structuredLogger.Info(ctx, "Server exited", map[string]interface{}{})
}

func reconcileLoop(
	ctx context.Context,
	log logger.Logger,
	agents outbound.AgentRepository,
	lifecycle *usecase.AgentLifecycleUseCase,
	interval time.Duration,
	batch int,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info(ctx, "Ledger reconciliation started", map[string]interface{}{
		"interval": interval.String(),
		"batch":    batch,
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stuck, err := agents.ListUnsynced(ctx, batch)
		if err != nil {
			log.Error(ctx, "Reconciliation sweep failed to list unsynced agents", err, map[string]interface{}{})
			continue
		}
		for _, agent := range stuck {
			if err := lifecycle.MirrorIdentity(ctx, agent.ID); err != nil {
				log.Warn(ctx, "Reconciliation mirror attempt failed", map[string]interface{}{
					"agent_id": agent.ID,
					"reason":   err.Error(),
				})
			}
		}
	}
}
