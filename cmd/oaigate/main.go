// Package main is the entry point for the oaigate server: an
// OpenAI-compatible gateway that relays chat completions to a dialog
// backend and coordinates webhook-driven image generation jobs.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"oaigate/internal/config"
	"oaigate/internal/database"
	"oaigate/internal/dify"
	"oaigate/internal/http/handlers"
	"oaigate/internal/http/mw"
	"oaigate/internal/logging"
	"oaigate/internal/rendezvous"
	"oaigate/internal/repository"
	"oaigate/internal/service"
	"oaigate/internal/version"
)

func main() {
	// Initialize logger with TTY detection and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting oaigate",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and in-process rendezvous state
	repos := repository.NewRepositories(db)
	registry := rendezvous.New()

	// Initialize services
	services := service.NewServices(cfg, repos, registry, logger)

	// Fail jobs orphaned by a previous server run: their rendezvous
	// entries died with the process, so they can never complete.
	services.Image.SweepStaleJobs(context.Background())

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Request timeout middleware with different timeouts per endpoint type
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  30 * time.Second,
		Extended: cfg.ImageWaitTimeout + 15*time.Second,
		// Image creation holds the request for the bounded webhook wait
		ExtendedPatterns: []string{"/images/generations"},
		// SSE chat streaming has no timeout (bounded by the upstream)
		SkipPatterns: []string{"/chat/completions"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Rate limit by IP; the gateway has no account tiers of its own
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Create Huma API config for documented endpoints
	humaConfig := huma.DefaultConfig("oaigate", v.Short())
	humaConfig.Info.Description = "OpenAI-compatible gateway bridging a conversational backend and a webhook-driven image generation backend, with content-addressed result pinning."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.PublicURL, Description: "Gateway"},
	}
	api := humachi.New(router, humaConfig)

	// Config for hidden routes (K8s probes - no docs needed)
	hiddenConfig := huma.DefaultConfig("oaigate", v.Short())
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""
	hiddenAPI := humachi.New(router, hiddenConfig)

	// Health check (public, shown in docs)
	huma.Get(api, "/v1/health", handlers.HealthCheck)

	// Kubernetes probes (hidden from docs - internal use only)
	huma.Get(hiddenAPI, "/healthz", handlers.Livez)
	readyzHandler := handlers.NewReadyzHandler(db)
	huma.Get(hiddenAPI, "/readyz", readyzHandler.Readyz)

	// Job inspection endpoints
	imageHandler := handlers.NewImageHandler(services.Image, logger)
	huma.Get(api, "/v1/images/jobs", imageHandler.ListJobs)
	huma.Get(api, "/v1/images/jobs/{id}", imageHandler.GetJob)
	huma.Get(api, "/v1/images/jobs/{id}/deliveries", imageHandler.GetDeliveries)

	// OpenAI-contract endpoints. Raw handlers: these own their exact wire
	// shapes (including SSE framing and the 408 continuation body).
	chatHandler := handlers.NewChatHandler(dify.NewClient(cfg.DifyAPIURL), logger)
	webhookHandler := handlers.NewWebhookHandler(services.Image, logger)
	router.Post("/v1/chat/completions", chatHandler.ChatCompletions)
	router.Post("/v1/images/generations", imageHandler.CreateImage)
	router.Post("/v1/webhook/replicate/{id}", webhookHandler.ReplicateWebhook)

	// Create server
	server := &http.Server{
		Addr:        cfg.ListenAddr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout must cover the bounded image wait; streaming
		// handlers clear their own deadline via ResponseController.
		WriteTimeout: cfg.ImageWaitTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "addr", cfg.ListenAddr(), "public_url", cfg.PublicURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
