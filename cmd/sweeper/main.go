package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/archive"
	"github.com/aman-zulfiqar/pair-sweeper/internal/blocklist"
	"github.com/aman-zulfiqar/pair-sweeper/internal/config"
	"github.com/aman-zulfiqar/pair-sweeper/internal/feed"
	"github.com/aman-zulfiqar/pair-sweeper/internal/host"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/aman-zulfiqar/pair-sweeper/internal/notifier"
	"github.com/aman-zulfiqar/pair-sweeper/internal/observability"
	"github.com/aman-zulfiqar/pair-sweeper/internal/ohlcv"
	"github.com/aman-zulfiqar/pair-sweeper/internal/runner"
	"github.com/aman-zulfiqar/pair-sweeper/internal/server"
	"github.com/aman-zulfiqar/pair-sweeper/internal/storage"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the sweep loop in the background and serves the admin surface
// in the foreground until SIGINT/SIGTERM.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	metrics := observability.NewMetrics("")
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Block-list and sinks. Redis, when configured, backs both the block-list
	// and the signal pub/sub; otherwise the block-list lives in SQLite.
	var (
		blocks storage.BlockList
		sinks  []storage.SignalSink
	)
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()

		blocks = blocklist.NewRedisStore(rclient)
		sinks = append(sinks, archive.NewPublisher(rclient))
	} else {
		store, err := blocklist.OpenSQLite(cfg.StoragePath)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.StoragePath).Fatal("failed to open block-list")
		}
		blocks = store
	}
	defer blocks.Close()

	seeded, err := blocklist.SeedDefaults(ctx, blocks, cfg.IgnoredPoolsFile)
	if err != nil {
		logger.WithError(err).Fatal("failed to seed block-list")
	}
	logger.WithField("addresses", seeded).Info("block-list seeded")

	if cfg.ClickHouseAddr != "" {
		ch, err := archive.NewClickHouseStore(ctx, archive.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse archive disabled")
		} else {
			sinks = append(sinks, ch)
			defer ch.Close()
		}
	}

	// each constructor sets its own delay and page cap on its copy
	feedCfg := feed.ClientConfig{MaxPages: cfg.MaxPages, HTTPClient: httpClient, Logger: logger}
	feeds := []feed.Feed{
		feed.NewGeckoTerminalTop(feedCfg),
		feed.NewGeckoTerminalTrending(feedCfg),
		feed.NewCoinMarketCap(feedCfg),
	}

	var hosts []host.Host
	switch cfg.HostBackend {
	case config.BackendHTTP:
		h, err := host.NewHTTPHost(host.HTTPConfig{
			Endpoints: cfg.HostEndpoints,
			AuthKey:   cfg.HostAuthKey,
			Logger:    logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create http host")
		}
		hosts = append(hosts, h)
	default:
		h, err := host.NewLambdaHost(ctx, cfg.FunctionName, cfg.AWSRegions, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create lambda host")
		}
		hosts = append(hosts, h)
	}

	notifiers := make(map[models.Network]notifier.Notifier)
	byName := make(map[string]notifier.Notifier)
	for n, url := range cfg.Webhooks {
		w := notifier.NewBufferedWebhook(notifier.WebhookConfig{
			URL:           url,
			HTTPClient:    httpClient,
			Logger:        logger,
			OnRateLimited: metrics.NotifierRateLimited.Inc,
		})
		notifiers[n] = w
		byName[string(n)] = w
	}
	flusher, err := notifier.NewFlusher(byName, cfg.NotifierFlushInterval, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create notifier flusher")
	}
	flusher.Start()
	defer flusher.Stop()

	r, err := runner.New(runner.Config{
		MaxPages:           cfg.MaxPages,
		MaxAttemptsPerPair: cfg.MaxAttemptsPerPair,
		RequestsPerSlot:    cfg.HostRequestsPer,
		DispatchInterval:   cfg.DispatchInterval,
		OHLCVLimit:         cfg.OHLCVLimit,
		MinLiquidity:       cfg.MinLiquidity,
		RunOnce:            cfg.RunOnce,
		PostImmediately:    cfg.PostImmediately,
	}, runner.Deps{
		Feeds:     feeds,
		Hosts:     hosts,
		BlockList: blocks,
		Notifiers: notifiers,
		Provider:  ohlcv.GeckoTerminal{},
		Analyzer:  ohlcv.CandleAnalyzer{},
		Sinks:     sinks,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create runner")
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			BlockList: blocks,
			Metrics:   metrics.Handler(),
			DevMode:   cfg.Debug,
			Logger:    logger,
		},
		Config: server.ServerConfig{
			Addr:    cfg.Addr,
			DevMode: cfg.Debug,
			AuthKey: cfg.AuthKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			cancel()
			_ = srv.Shutdown(context.Background())
		})
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"networks": r.Networks(),
			"batch":    r.BatchLen(),
		}).Info("sweeper starting")
		err := r.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("sweeper stopped")
		}
		if cfg.RunOnce {
			dctx, dcancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := flusher.Drain(dctx, cfg.NotifierFlushInterval); err != nil {
				logger.WithError(err).Warn("notifications still buffered at exit")
			}
			dcancel()
			shutdown()
		}
	}()

	go func() {
		<-sigCh
		logger.Info("shutting down")
		shutdown()
	}()

	logger.WithField("addr", cfg.Addr).Info("admin server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("admin server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("admin server did not close cleanly")
	}
}
