// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mint-watch/internal/discovery"
	"mint-watch/internal/risk"
	"mint-watch/internal/secrets"
	"mint-watch/internal/solana"
)

// ErrMissing wraps every missing required variable.
var ErrMissing = errors.New("required configuration missing")

// Dedup backends.
const (
	DedupRedis    = "redis"
	DedupPostgres = "postgres"
	DedupMemory   = "memory"
)

// Alert modes.
const (
	AlertTelegram = "telegram"
	AlertDiscord  = "discord"
	AlertKafka    = "kafka"
	AlertLog      = "log"
)

// Config holds all application configuration
type Config struct {
	// Feed
	FeedEndpoints  []string
	Commitment     string
	ProgramID      string
	FilterMarkers  []string
	ReconnectDelay time.Duration

	// Read API
	RPCEndpoint          string
	RPCTimeout           time.Duration
	RPCMaxRetries        int
	RPCRequestsPerSecond float64
	FetchMetadata        bool

	// Dedup
	DedupBackend  string
	RedisURL      string
	PostgresDSN   string
	EventTTL      time.Duration
	CandidateTTL  time.Duration
	EvictInterval time.Duration // memory eviction and postgres cleanup period

	// Scoring and alerts
	ScoreThreshold    float64
	AlertModes        []string
	ExplorerBase      string
	TelegramBotToken  string
	TelegramChatID    string
	TelegramAPIBase   string
	DiscordWebhookURL string
	KafkaBrokers      []string
	KafkaTopic        string

	// Pipeline
	MaxInFlight   int
	QueueSize     int
	ShutdownGrace time.Duration

	// Liveness / metrics
	Port int

	// Logging
	LogLevel logrus.Level
}

// Load reads configuration from environment variables and validates it.
// The returned error joins every problem found.
func Load() (*Config, error) {
	r := &envReader{}

	cfg := &Config{
		FeedEndpoints:  parseCSV(getEnv("FEED_ENDPOINTS", "")),
		Commitment:     getEnv("COMMITMENT", "confirmed"),
		ProgramID:      getEnv("PROGRAM_ID", solana.TokenProgramID),
		FilterMarkers:  parseCSV(getEnv("FILTER_MARKERS", strings.Join(discovery.DefaultMarkers, ","))),
		ReconnectDelay: r.duration("RECONNECT_DELAY", 5*time.Second),

		RPCEndpoint:          getEnv("RPC_ENDPOINT", ""),
		RPCTimeout:           r.duration("RPC_TIMEOUT", solana.DefaultTimeout),
		RPCMaxRetries:        r.int("RPC_MAX_RETRIES", solana.DefaultMaxRetries),
		RPCRequestsPerSecond: r.float("RPC_REQUESTS_PER_SECOND", 0),
		FetchMetadata:        r.bool("FETCH_METADATA", true),

		DedupBackend:  strings.ToLower(getEnv("DEDUP_BACKEND", DedupRedis)),
		RedisURL:      r.secret("REDIS_URL"),
		PostgresDSN:   r.secret("POSTGRES_DSN"),
		EventTTL:      r.duration("DEDUP_EVENT_TTL", 6*time.Hour),
		CandidateTTL:  r.duration("DEDUP_CANDIDATE_TTL", 12*time.Hour),
		EvictInterval: r.duration("DEDUP_EVICT_INTERVAL", time.Minute),

		ScoreThreshold:    r.float("SCORE_THRESHOLD", risk.DefaultThreshold),
		AlertModes:        parseCSV(strings.ToLower(getEnv("ALERT_MODE", AlertTelegram))),
		ExplorerBase:      getEnv("EXPLORER_BASE_URL", "https://explorer.solana.com"),
		TelegramBotToken:  r.secret("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIBase:   getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		DiscordWebhookURL: r.secret("DISCORD_WEBHOOK_URL"),
		KafkaBrokers:      parseCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "mint-watch.alerts"),

		MaxInFlight:   r.int("MAX_IN_FLIGHT", 64),
		QueueSize:     r.int("QUEUE_SIZE", 1024),
		ShutdownGrace: r.duration("SHUTDOWN_GRACE", 10*time.Second),

		Port: r.int("PORT", 8080),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		r.fail(fmt.Errorf("LOG_LEVEL: %w", err))
		level = logrus.InfoLevel
	}
	cfg.LogLevel = level

	if err := errors.Join(r.errs...); err != nil {
		return nil, errors.Join(err, cfg.Validate())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration for errors. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	missing := func(name, why string) {
		if why != "" {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", ErrMissing, name, why))
			return
		}
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissing, name))
	}

	if len(c.FeedEndpoints) == 0 {
		missing("FEED_ENDPOINTS", "")
	}
	for _, ep := range c.FeedEndpoints {
		if u, err := url.Parse(ep); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("FEED_ENDPOINTS: %q is not a ws:// or wss:// URL", ep))
		}
	}
	if c.RPCEndpoint == "" {
		missing("RPC_ENDPOINT", "")
	}
	if !discovery.IsValidAddress(c.ProgramID) {
		errs = append(errs, fmt.Errorf("PROGRAM_ID: %q is not a valid address", c.ProgramID))
	}

	switch c.DedupBackend {
	case DedupRedis:
		if c.RedisURL == "" {
			missing("REDIS_URL", "DEDUP_BACKEND=redis")
		}
	case DedupPostgres:
		if c.PostgresDSN == "" {
			missing("POSTGRES_DSN", "DEDUP_BACKEND=postgres")
		}
	case DedupMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid DEDUP_BACKEND: %s (valid values: redis, postgres, memory)", c.DedupBackend))
	}

	if len(c.AlertModes) == 0 {
		missing("ALERT_MODE", "")
	}
	for _, mode := range c.AlertModes {
		switch mode {
		case AlertTelegram:
			if c.TelegramBotToken == "" {
				missing("TELEGRAM_BOT_TOKEN", "telegram in ALERT_MODE")
			}
			if c.TelegramChatID == "" {
				missing("TELEGRAM_CHAT_ID", "telegram in ALERT_MODE")
			}
		case AlertDiscord:
			if c.DiscordWebhookURL == "" {
				missing("DISCORD_WEBHOOK_URL", "discord in ALERT_MODE")
			}
		case AlertKafka:
			if len(c.KafkaBrokers) == 0 {
				missing("KAFKA_BROKERS", "kafka in ALERT_MODE")
			}
			if c.KafkaTopic == "" {
				missing("KAFKA_TOPIC", "kafka in ALERT_MODE")
			}
		case AlertLog:
		default:
			errs = append(errs, fmt.Errorf("invalid ALERT_MODE value: %s (valid values: telegram, discord, kafka, log)", mode))
		}
	}

	if c.EventTTL <= 0 || c.CandidateTTL <= 0 {
		errs = append(errs, errors.New("dedup TTLs must be positive"))
	}
	if c.EvictInterval <= 0 {
		errs = append(errs, errors.New("DEDUP_EVICT_INTERVAL must be positive"))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("RECONNECT_DELAY must be positive"))
	}
	if c.MaxInFlight < 1 {
		errs = append(errs, errors.New("MAX_IN_FLIGHT must be at least 1"))
	}
	if c.QueueSize < 1 {
		errs = append(errs, errors.New("QUEUE_SIZE must be at least 1"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

// envReader parses typed variables and collects parse errors.
type envReader struct {
	errs []error
}

func (r *envReader) fail(err error) {
	r.errs = append(r.errs, err)
}

func (r *envReader) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return v
}

func (r *envReader) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return v
}

func (r *envReader) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return v
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return v
}

func (r *envReader) secret(key string) string {
	v, err := secrets.GetSecret(key, "")
	if err != nil {
		r.fail(err)
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
