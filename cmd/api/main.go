// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/support-chat/internal/config"
	"github.com/capitalize-ai/support-chat/internal/handler"
	"github.com/capitalize-ai/support-chat/internal/llm"
	"github.com/capitalize-ai/support-chat/internal/middleware"
	natsclient "github.com/capitalize-ai/support-chat/internal/nats"
	"github.com/capitalize-ai/support-chat/internal/service"
	"github.com/capitalize-ai/support-chat/internal/store"
	"github.com/capitalize-ai/support-chat/pkg/logger"
	"github.com/capitalize-ai/support-chat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the durable store
	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Connect to NATS and ensure the event stream, when enabled
	var natsConn *natsclient.Client
	var events service.EventPublisher
	if cfg.NATSEnabled {
		natsConn, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsConn.Close()

		publisher := natsclient.NewEventPublisher(natsConn)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		events = publisher
	}

	// Initialize LLM client
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderOpenAI) && cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		log.Error("no LLM API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	chatSvc := service.NewChatService(db, db, db, llmClient, events, cfg.ProviderTimeout, log)
	agentSvc := service.NewAgentService(db, cfg.MaxDomainPatterns, llmClient.Models(), log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsConn, db)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	agentHandler := handler.NewAgentHandler(agentSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", agentHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.Get)
				r.Get("/risk", agentHandler.Risk)
				r.Put("/template", agentHandler.UpdateTemplate)
				r.Put("/domains", agentHandler.UpdateDomains)

				r.Post("/chat", chatHandler.Handle)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
