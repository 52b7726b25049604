package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/internal/config"
	"github.com/rodrgost/cronicas-carmesim/internal/services"
	"github.com/rodrgost/cronicas-carmesim/internal/storage"
)

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
