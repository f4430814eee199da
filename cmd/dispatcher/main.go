package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/config"
	"teams-message-relay-go/internal/dispatch"
)

// The dispatcher is the client-resident half of the pipeline: a local
// detector posts payloads to /enqueue and the durable queue relays them to
// the ingress webhook with bounded retries.
func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting dispatch agent")

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateDispatcher(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	store, err := dispatch.NewFileStore(cfg.Dispatch.QueueFile)
	if err != nil {
		logrus.Fatalf("Failed to open queue store: %v", err)
	}

	target := dispatch.NewWebhookTarget(cfg.Dispatch.WebhookURL, cfg.Dispatch.APIKey, cfg.Dispatch.HTTPTimeout)

	policy := dispatch.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Dispatch.MaxAttempts
	if cfg.Dispatch.FlushSchedule != "" {
		policy.FlushSchedule = cfg.Dispatch.FlushSchedule
	}

	queue, err := dispatch.NewQueue(store, target, policy)
	if err != nil {
		logrus.Fatalf("Failed to create dispatch queue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start dispatch queue: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/enqueue", func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil || len(payload) == 0 || !json.Valid(payload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON payload"})
			return
		}
		if err := queue.Enqueue(c.Request.Context(), payload); err != nil {
			logrus.Errorf("Failed to enqueue payload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist payload"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": queue.Depth()})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "queued": queue.Depth()})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Dispatch.Port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Dispatch agent listening on port %s", cfg.Dispatch.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down dispatch agent...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	queue.Stop()
	queue.Flush(shutdownCtx)

	logrus.Info("Dispatch agent stopped gracefully")
}
