package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-watch/internal/discovery"
	"mint-watch/internal/solana"
)

// setEnv sets a minimal valid environment.
func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FEED_ENDPOINTS", "wss://a.example, wss://b.example")
	t.Setenv("RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, cfg.FeedEndpoints)
	assert.Equal(t, solana.TokenProgramID, cfg.ProgramID)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, DedupRedis, cfg.DedupBackend)
	assert.Equal(t, 6*time.Hour, cfg.EventTTL)
	assert.Equal(t, 12*time.Hour, cfg.CandidateTTL)
	assert.Equal(t, 0.5, cfg.ScoreThreshold)
	assert.Equal(t, []string{AlertTelegram}, cfg.AlertModes)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 64, cfg.MaxInFlight)
	assert.Equal(t, 1024, cfg.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, discovery.DefaultMarkers, cfg.FilterMarkers)
	assert.True(t, cfg.FetchMetadata)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t)
	t.Setenv("DEDUP_BACKEND", "memory")
	t.Setenv("DEDUP_EVENT_TTL", "30m")
	t.Setenv("FILTER_MARKERS", "InitializeMint2")
	t.Setenv("ALERT_MODE", "log,discord")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/hook")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DedupMemory, cfg.DedupBackend)
	assert.Equal(t, 30*time.Minute, cfg.EventTTL)
	assert.Equal(t, []string{"InitializeMint2"}, cfg.FilterMarkers)
	assert.Equal(t, []string{AlertLog, AlertDiscord}, cfg.AlertModes)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_SecretFromFile(t *testing.T) {
	setEnv(t)
	path := filepath.Join(t.TempDir(), "tg")
	require.NoError(t, os.WriteFile(path, []byte("999:fromfile\n"), 0o600))
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "999:fromfile", cfg.TelegramBotToken)
}

func TestLoad_ReportsAllMissing(t *testing.T) {
	t.Setenv("FEED_ENDPOINTS", "")
	t.Setenv("RPC_ENDPOINT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))

	for _, name := range []string{"FEED_ENDPOINTS", "RPC_ENDPOINT", "REDIS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	setEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("DEDUP_EVENT_TTL", "six hours")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("DEDUP_BACKEND", "etcd")
	t.Setenv("ALERT_MODE", "telegram,pager")

	_, err := Load()
	require.Error(t, err)

	for _, want := range []string{"PORT", "DEDUP_EVENT_TTL", "LOG_LEVEL", "DEDUP_BACKEND", "pager"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_FeedScheme(t *testing.T) {
	setEnv(t)
	t.Setenv("FEED_ENDPOINTS", "https://not-a-websocket")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a ws:// or wss:// URL")
}

func TestValidate_BackendRequirements(t *testing.T) {
	setEnv(t)
	t.Setenv("DEDUP_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}
