package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/internal/config"
	"github.com/rodrgost/cronicas-carmesim/internal/handlers"
	"github.com/rodrgost/cronicas-carmesim/internal/logger"
	"github.com/rodrgost/cronicas-carmesim/internal/middleware"
	"github.com/rodrgost/cronicas-carmesim/internal/services/events"
	"github.com/rodrgost/cronicas-carmesim/internal/services/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Cronicas Carmesim API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"storage_backend", cfg.StorageBackend)

	llmService, err := buildLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmService.(interface{ Close() error }); ok {
		defer closer.Close() //nolint:errcheck
	}

	// Redis backs the turn queue and event stream even when documents
	// live in Supabase.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close() //nolint:errcheck

	store, err := buildStorage(cfg, redisClient, log)
	if err != nil {
		log.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close() //nolint:errcheck

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established")

	turnQueue := queue.NewTurnQueue(redisClient)
	broadcaster := events.NewBroadcaster(redisClient, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, llmService, log))

	characterHandler := handlers.NewCharacterHandler(store, log)
	mux.Handle("/v1/characters", characterHandler)
	mux.Handle("/v1/characters/", characterHandler)

	chronicleHandler := handlers.NewChronicleHandler(store, log)
	mux.Handle("/v1/chronicles", chronicleHandler)
	mux.Handle("/v1/chronicles/", chronicleHandler)

	mux.Handle("/v1/turns", handlers.NewTurnHandler(store, turnQueue, broadcaster, log))
	mux.Handle("/v1/events/", handlers.NewEventsHandler(redisClient, log))

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint holds connections open.
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
		os.Exit(1)
	}

	log.Info("Server exited")
}
