package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/cache"
	"teams-message-relay-go/internal/config"
	"teams-message-relay-go/internal/db"
	"teams-message-relay-go/internal/dedup"
	"teams-message-relay-go/internal/handlers"
	"teams-message-relay-go/internal/ingest"
	"teams-message-relay-go/internal/metrics"
	"teams-message-relay-go/internal/notify"
	"teams-message-relay-go/internal/repository"
	"teams-message-relay-go/internal/server"
	"teams-message-relay-go/internal/session"
)

// Run initializes and starts the ingestion server
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Teams Message Relay Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache := cache.New(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(ctx); err != nil {
		logrus.Warnf("Redis unreachable at startup, dedup will fail open: %v", err)
	}
	cancel()

	m := metrics.NewMetrics()
	hub := notify.NewHub()

	messageRepo := repository.NewMessageRepository(dbConn)
	sessionRepo := repository.NewSessionRepository(dbConn)

	filter := dedup.NewFilter(redisCache, cfg.Ingest.DedupTTL)
	ingestor := ingest.NewIngestor(messageRepo, filter, redisCache, hub, m, cfg.Ingest.MaxBatchSize)
	sessions := session.NewManager(sessionRepo, redisCache, hub, m, cfg.Session.ActivePointerTTL)

	h := handlers.NewHandlers(dbConn, ingestor, sessions, messageRepo, redisCache, hub, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := redisCache.Close(); err != nil {
		logrus.Errorf("Failed to close redis client: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
