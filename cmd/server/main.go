// SocialDash - server-rendered social media dashboard
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/socialdash/internal/api"
	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/config"
	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/ashureev/socialdash/internal/inbox"
	"github.com/ashureev/socialdash/internal/logging"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/store"
	"github.com/ashureev/socialdash/internal/telemetry"
	"github.com/ashureev/socialdash/internal/view"
	"github.com/ashureev/socialdash/web"
	"github.com/joho/godotenv"
)

const serviceName = "socialdash"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "backend", cfg.Backend.URL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Otel.Endpoint, cfg.TracingEnabled())
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	client, err := backend.New(cfg.Backend.URL, cfg.Backend.Timeout)
	if err != nil {
		slog.Error("Failed to initialize backend client", "error", err)
		os.Exit(1)
	}

	fx, err := fixtures.Default()
	if err != nil {
		slog.Error("Failed to load fixtures", "error", err)
		os.Exit(1)
	}

	var views *view.Renderer
	if cfg.TemplateDir != "" {
		views, err = view.NewRendererDir(cfg.TemplateDir)
	} else {
		views, err = view.NewRenderer()
	}
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}
	if cfg.TemplateDir != "" {
		if _, err := view.Watch(ctx, views, cfg.TemplateDir); err != nil {
			slog.Warn("Template hot reload disabled", "dir", cfg.TemplateDir, "error", err)
		} else {
			slog.Info("Watching templates", "dir", cfg.TemplateDir)
		}
	}

	sessions := session.NewManager(session.NewSCS(repo, session.Options{
		Lifetime:    cfg.Session.Lifetime,
		IdleTimeout: cfg.Session.IdleTimeout,
		Secure:      !cfg.IsDevelopment(),
	}))

	hub := inbox.NewHub()
	conversations := inbox.NewConversations(fx.Threads, fx.Greeting)
	wsHandler := inbox.NewWebSocketHandler(hub, conversations, cfg.PublicURL, cfg.IsDevelopment())

	// Initialize handlers.
	handler := api.NewHandler(api.Deps{
		Backend:       client,
		Sessions:      sessions,
		Devices:       repo,
		Views:         views,
		Fixtures:      fx,
		Conversations: conversations,
		Live:          wsHandler,
		Hub:           hub,
	})

	var origins []string
	if cfg.PublicURL != "" {
		origins = append(origins, cfg.PublicURL)
	}
	router := api.NewRouter(api.RouterConfig{
		Handler:        handler,
		Health:         api.NewHealthHandler(repo),
		Sessions:       sessions,
		Devices:        repo,
		Inbox:          wsHandler,
		Static:         web.StaticHandler(),
		AllowedOrigins: origins,
		IsDev:          cfg.IsDevelopment(),
	})

	// Create server.
	// WriteTimeout stays 0 so the inbox websocket is not cut off.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	// Start session sweeper.
	sweeperDone := session.StartSweeper(ctx, repo, cfg.Session.SweepInterval, cfg.Session.DeviceRetention, conversations)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	<-sweeperDone

	slog.Info("Server stopped successfully")
}
