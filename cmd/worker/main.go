package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/plotweaver/internal/config"
	"github.com/jwebster45206/plotweaver/internal/logger"
	"github.com/jwebster45206/plotweaver/internal/services/queue"
	"github.com/jwebster45206/plotweaver/internal/storage"
	"github.com/jwebster45206/plotweaver/internal/worker"
	"github.com/jwebster45206/plotweaver/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Plotweaver Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	queueClient, err := queue.NewClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	stepQueue := queue.NewStepQueue(queueClient)
	log.Info("Queue service initialized successfully")

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.StoryTTL, log)
	if err := store.WaitForConnection(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	policy := engine.DefaultPolicy()
	if cfg.PolicyFile != "" {
		if policy, err = engine.LoadPolicy(cfg.PolicyFile); err != nil {
			log.Error("Failed to load policy", "error", err, "path", cfg.PolicyFile)
			os.Exit(1)
		}
	}

	deps, err := storage.LoadDeps(startCtx, store, policy.MinSimilarity, log)
	if err != nil {
		log.Error("Failed to load knowledge base", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	archive, err := storage.OpenArchive(cfg.ArchivePath)
	if err != nil {
		log.Error("Failed to open archive", "error", err, "path", cfg.ArchivePath)
		os.Exit(1)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			log.Error("Error closing archive", "error", err)
		}
	}()

	processor := worker.NewStoryProcessor(store, archive, deps, policy, log)

	// Story locks and events share the storage connection pool.
	w := worker.New(stepQueue, processor, store.Client(), log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")
	w.Stop()

	// Give worker time to finish current request
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
