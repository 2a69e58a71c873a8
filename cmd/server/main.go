package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"casefile/internal/app"
	"casefile/internal/auth"
	"casefile/internal/config"
	"casefile/internal/handler"
	"casefile/internal/middleware"
	"casefile/internal/session"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.OpenLogFile(cfg.LogDir, config.DefaultLogFilesKept, time.Now())
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"blob", cfg.BlobBackend,
		"lock_ttl", cfg.LockTTL,
		"heartbeat_interval", cfg.HeartbeatInterval,
	)

	// JWKS in production, shared secret in dev/test
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		jwtVerifier, err = auth.NewJWTVerifier(cfg.JWKSURL, logger)
	} else {
		logger.Warn("JWKS_URL not set, verifying HS256 tokens with JWT_SECRET")
		jwtVerifier, err = auth.NewHMACVerifier(cfg.JWTSecret, logger)
	}
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up services: %v", err)
	}
	defer services.Close()

	// Edit sessions: abandoned ones are expired and their locks released
	registry := session.NewRegistry(cfg.SessionIdleTTL, nil, logger)
	go registry.Run(ctx, cfg.HeartbeatInterval)

	origins := strings.Split(cfg.CORSOrigins, ",")
	handlers := &handler.Handlers{
		Documents: handler.NewDocumentHandler(services.Versions, logger),
		Locks:     handler.NewLockHandler(services.Locks, logger),
		Versions:  handler.NewVersionHandler(services.Versions, logger),
		Tiers:     handler.NewTierHandler(services.Tiers, logger),
		Sessions: handler.NewSessionHandler(services.Locks, services.Versions, registry, handler.SessionConfig{
			AutosaveDelay:     cfg.AutosaveDelay,
			HeartbeatInterval: cfg.HeartbeatInterval,
			AllowedOrigins:    origins,
		}, logger),
	}
	if cfg.InternalAPIToken == "" {
		logger.Warn("INTERNAL_API_TOKEN not set, internal tier hooks disabled")
	}

	logger.Info("services initialized")

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestLogger → Recovery → Auth → Routes
	var h http.Handler = handler.NewRouter(handlers, cfg.InternalAPIToken)
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Edit-Session", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Websocket sessions are long-lived
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	// Release every lock this process holds so other editors can take over
	registry.CloseAll(shutdownCtx)
	logger.Info("server stopped")
}
