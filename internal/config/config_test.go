package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingProviderKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "skynet")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SupabaseRequiresCredentials(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("STORAGE_BACKEND", "supabase")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageSupabase, cfg.StorageBackend)
}

func TestLogLevelParsing(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for raw, want := range cases {
		cfg := &Config{LogLevelRaw: raw}
		assert.Equal(t, want, cfg.LogLevel(), raw)
	}
}
