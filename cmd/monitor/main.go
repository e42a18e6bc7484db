package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"mint-watch/internal/alerts"
	"mint-watch/internal/config"
	"mint-watch/internal/dedup"
	"mint-watch/internal/discovery"
	"mint-watch/internal/domain"
	"mint-watch/internal/enrichment"
	"mint-watch/internal/feed"
	"mint-watch/internal/observability"
	"mint-watch/internal/pipeline"
	"mint-watch/internal/solana"
	"mint-watch/internal/storage"
	"mint-watch/internal/storage/memory"
	"mint-watch/internal/storage/migrations"
	pgstore "mint-watch/internal/storage/postgres"
	redisstore "mint-watch/internal/storage/redis"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("Received signal, initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		forceAfter := cfg.ShutdownGrace + 5*time.Second
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("Received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(forceAfter):
			logger.WithField("timeout", forceAfter.String()).Error("Graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("Monitor stopped with error")
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	metrics := observability.NewMetrics("", prometheus.DefaultRegisterer)

	server := observability.NewServer(":"+strconv.Itoa(cfg.Port), observability.Handler(), logger.WithField("component", "server"))
	if err := server.Start(); err != nil {
		return fmt.Errorf("start liveness server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Liveness server shutdown error")
		}
	}()

	store, closeStore, err := createDedupStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sender, closeSender, err := createAlertSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithMaxRetries(cfg.RPCMaxRetries),
		solana.WithCommitment(cfg.Commitment),
		solana.WithObserver(metrics.RecordRPC),
	)

	adapter, err := feed.NewAdapter(solana.NewWSClient(nil), feed.AdapterOptions{
		Endpoints: cfg.FeedEndpoints,
		Filter: solana.LogsFilter{
			Mentions:   []string{cfg.ProgramID},
			Commitment: cfg.Commitment,
		},
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Options{
		Filter: discovery.NewFilter(cfg.FilterMarkers),
		Gate: dedup.NewGate(store, dedup.Options{
			EventTTL:     cfg.EventTTL,
			CandidateTTL: cfg.CandidateTTL,
			Logger:       logger,
			Metrics:      metrics,
		}),
		Loader:    feed.NewLoader(rpc),
		Extractor: discovery.NewExtractor(cfg.ProgramID),
		Fetcher: enrichment.NewFetcher(rpc, enrichment.Options{
			RequestsPerSecond: cfg.RPCRequestsPerSecond,
			SkipMetadata:      !cfg.FetchMetadata,
			Logger:            logger,
			Metrics:           metrics,
		}),
		Dispatcher: alerts.NewDispatcher(sender, alerts.DispatcherOptions{
			Threshold:    cfg.ScoreThreshold,
			ExplorerBase: cfg.ExplorerBase,
			Logger:       logger,
			Metrics:      metrics,
		}),
		MaxInFlight:   cfg.MaxInFlight,
		ShutdownGrace: cfg.ShutdownGrace,
		Logger:        logger,
		Metrics:       metrics,
	})

	events := make(chan domain.RawEvent, cfg.QueueSize)
	feedDone := make(chan error, 1)
	go func() {
		feedDone <- adapter.Run(ctx, events)
	}()

	logger.WithFields(logrus.Fields{
		"endpoints":     len(cfg.FeedEndpoints),
		"program_id":    cfg.ProgramID,
		"dedup_backend": cfg.DedupBackend,
		"alert_modes":   cfg.AlertModes,
		"threshold":     cfg.ScoreThreshold,
		"max_in_flight": cfg.MaxInFlight,
		"queue_size":    cfg.QueueSize,
	}).Info("Monitor started")

	err = p.Run(ctx, events)
	<-feedDone
	return err
}

// createDedupStore connects the configured backend. The returned func
// releases its resources.
func createDedupStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.DedupStore, func(), error) {
	switch cfg.DedupBackend {
	case config.DedupRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("Using Redis dedup store")
		return redisstore.NewDedupStore(client), func() { client.Close() }, nil

	case config.DedupPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		store := pgstore.NewDedupStore(pool)
		cleanupCtx, stop := context.WithCancel(ctx)
		go runPostgresCleanup(cleanupCtx, store, cfg.EvictInterval, logger)
		logger.Info("Using PostgreSQL dedup store")
		return store, func() { stop(); pool.Close() }, nil

	case config.DedupMemory:
		store := memory.NewDedupStore()
		evictCtx, stop := context.WithCancel(ctx)
		go store.RunEvictor(evictCtx, cfg.EvictInterval)
		logger.Warn("Using in-memory dedup store; marks are not shared between instances")
		return store, stop, nil

	default:
		return nil, nil, fmt.Errorf("unknown dedup backend %q", cfg.DedupBackend)
	}
}

// runPostgresCleanup deletes expired dedup rows every interval.
func runPostgresCleanup(ctx context.Context, store *pgstore.DedupStore, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.WithError(err).Warn("Dedup cleanup failed")
				continue
			}
			if n > 0 {
				logger.WithField("deleted", n).Debug("Expired dedup keys removed")
			}
		}
	}
}

// createAlertSender builds one sender per configured mode.
func createAlertSender(cfg *config.Config, logger *logrus.Logger) (alerts.Sender, func(), error) {
	var senders []alerts.Sender
	var closers []io.Closer

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.WithError(err).Warn("Alert sender close error")
			}
		}
	}

	for _, mode := range cfg.AlertModes {
		switch mode {
		case config.AlertTelegram:
			senders = append(senders, alerts.NewTelegramSender(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID))
		case config.AlertDiscord:
			senders = append(senders, alerts.NewDiscordSender(cfg.DiscordWebhookURL))
		case config.AlertKafka:
			kcfg := sarama.NewConfig()
			kcfg.ClientID = "mint-watch"
			ks, err := alerts.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic, kcfg)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			senders = append(senders, ks)
			closers = append(closers, ks)
		case config.AlertLog:
			senders = append(senders, alerts.NewLogSender(logger))
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown alert mode %q", mode)
		}
	}

	switch len(senders) {
	case 0:
		return nil, nil, fmt.Errorf("no alert mode configured")
	case 1:
		return senders[0], closeAll, nil
	default:
		return alerts.NewMultiSender(senders...), closeAll, nil
	}
}
