package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/plotweaver/internal/config"
	"github.com/jwebster45206/plotweaver/internal/handlers"
	"github.com/jwebster45206/plotweaver/internal/logger"
	"github.com/jwebster45206/plotweaver/internal/middleware"
	"github.com/jwebster45206/plotweaver/internal/services/events"
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

	log.Info("Starting Plotweaver API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"queue_steps", cfg.QueueSteps)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.StoryTTL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	policy := engine.DefaultPolicy()
	if cfg.PolicyFile != "" {
		if policy, err = engine.LoadPolicy(cfg.PolicyFile); err != nil {
			log.Error("Failed to load policy", "error", err, "path", cfg.PolicyFile)
			os.Exit(1)
		}
	}

	deps, err := storage.LoadDeps(storageCtx, store, policy.MinSimilarity, log)
	if err != nil {
		log.Error("Failed to load knowledge base", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	archive, err := storage.OpenArchive(cfg.ArchivePath)
	if err != nil {
		log.Error("Failed to open archive", "error", err, "path", cfg.ArchivePath)
		os.Exit(1)
	}

	processor := worker.NewStoryProcessor(store, archive, deps, policy, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	storiesHandler := handlers.NewStoriesHandler(processor, store, log)
	var queueClient *queue.Client
	if cfg.QueueSteps {
		queueClient, err = queue.NewClient(storageCtx, cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to create queue client", "error", err)
			os.Exit(1)
		}
		storiesHandler.WithQueue(queue.NewStepQueue(queueClient), events.NewBroadcaster(store.Client(), log))
		log.Info("Step requests are queued for workers")
	}
	mux.Handle("/v1/stories", storiesHandler)
	mux.Handle("/v1/stories/", storiesHandler)

	openingsHandler := handlers.NewOpeningsHandler(log, store)
	mux.Handle("/v1/openings", openingsHandler)
	mux.Handle("/v1/openings/", openingsHandler)

	archiveHandler := handlers.NewArchiveHandler(archive, log)
	mux.Handle("/v1/archive", archiveHandler)
	mux.Handle("/v1/archive/", archiveHandler)

	mux.Handle("/v1/events/stories/", handlers.NewEventsHandler(store.Client(), log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - the events endpoint holds connections open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}
	if err := archive.Close(); err != nil {
		log.Error("Error closing archive", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
