package main

import (
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/internal/config"
	"github.com/rodrgost/cronicas-carmesim/internal/logger"
	"github.com/rodrgost/cronicas-carmesim/internal/services"
	"github.com/rodrgost/cronicas-carmesim/internal/services/queue"
	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/internal/worker"
	"github.com/rodrgost/cronicas-carmesim/pkg/lore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Cronicas Carmesim Worker",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"concurrency", cfg.WorkerConcurrency)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

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

	llmService, err := buildLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmService.(interface{ Close() error }); ok {
		defer closer.Close() //nolint:errcheck
	}

	retriever := lore.NewRetriever(llmService, store, log)
	processor := worker.NewTurnProcessor(llmService, store, retriever, log)
	turnQueue := queue.NewTurnQueue(redisClient)

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	workers := make([]*worker.Worker, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		workerID := os.Getenv("WORKER_ID")
		if workerID != "" {
			workerID = fmt.Sprintf("%s-%d", workerID, i)
		}
		w := worker.New(turnQueue, processor, redisClient, log, workerID)
		workers = append(workers, w)

		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			if err := w.Start(); err != nil {
				log.Error("Worker exited with error", "error", err)
			}
		}(w)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Worker pool is shutting down...")
	for _, w := range workers {
		w.Stop()
	}
	wg.Wait()
	log.Info("Worker pool exited")
}

func buildLLMService(cfg *config.Config, log *slog.Logger) (services.LLMService, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case config.ProviderAnthropic:
		log.Info("Using Anthropic LLM provider", "model", cfg.AnthropicModel)
		return services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, log), nil
	case config.ProviderGemini:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Info("Using Gemini LLM provider", "model", cfg.GeminiModel)
		return services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens, log)
	case config.ProviderMock:
		log.Warn("Using mock LLM provider; narration is canned")
		return services.NewMockLLMAPI(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func buildStorage(cfg *config.Config, redisClient *redis.Client, log *slog.Logger) (storage.Storage, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case config.StorageRedis:
		return storage.NewRedisStorageFromClient(redisClient, log), nil
	case config.StorageSupabase:
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
