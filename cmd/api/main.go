package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/handlers"
	"github.com/jwebster45206/campaign-engine/internal/journal"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/internal/services/events"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Campaign Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"snapshot_backend", cfg.SnapshotBackend)

	store, err := storage.New(cfg, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	requests := queue.NewRequestQueue(queueClient)
	narrativeQueue := queue.NewNarrativeQueue(queueClient)
	broadcaster := events.NewBroadcaster(queueClient.GetRedisClient(), log)

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Error("Failed to open journal", "error", err, "path", cfg.JournalPath)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"storage": store,
		"queue":   queueClient,
		"journal": jrnl,
	}, log)
	mux.Handle("/health", healthHandler)

	campaignHandler := handlers.NewCampaignHandler(handlers.CampaignOptions{
		Storage:   store,
		Requests:  requests,
		Announcer: broadcaster,
		Narrative: narrativeQueue,
		Journal:   jrnl,
		Logger:    log,
	})
	mux.Handle("/v1/campaign", campaignHandler)
	mux.Handle("/v1/campaign/", campaignHandler)

	mux.Handle("/v1/events/campaign/", handlers.NewEventsHandler(broadcaster, log))
	mux.Handle("/v1/ws/campaign/", handlers.NewWebSocketHandler(broadcaster, requests, store, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.RequestLogger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE and websocket connections are long lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := jrnl.Close(); err != nil {
		log.Error("Error closing journal", "error", err)
	}
	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}

	log.Info("Server exited")
}
