package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/journal"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/internal/services/events"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/internal/worker"
	"github.com/jwebster45206/campaign-engine/pkg/catalog"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Campaign Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"pulse_interval", cfg.PulseInterval)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Error("Failed to load catalog", "error", err, "path", cfg.CatalogPath)
			os.Exit(1)
		}
	}
	log.Info("Catalog loaded", "name", cat.Name, "objectives", len(cat.Objectives))

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	requests := queue.NewRequestQueue(queueClient)
	narrativeQueue := queue.NewNarrativeQueue(queueClient)
	log.Info("Queue service initialized successfully")

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
	log.Info("Storage service initialized successfully")

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Error("Failed to open journal", "error", err, "path", cfg.JournalPath)
		os.Exit(1)
	}
	defer func() {
		if err := jrnl.Close(); err != nil {
			log.Error("Error closing journal", "error", err)
		}
	}()

	// Create a separate Redis client for worker locking
	// (separate from queue client to avoid connection conflicts)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()

	log.Info("Redis connection established successfully")

	processor := worker.NewProcessor(worker.ProcessorOptions{
		Storage:   store,
		Catalog:   cat,
		Narrative: narrativeQueue,
		Journal:   jrnl,
		Publisher: events.NewBroadcaster(redisClient, log),
		Logger:    log,
	})

	w := worker.New(requests, processor, redisClient, log, cfg.WorkerID, cfg.PulseInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Worker exited")
}
