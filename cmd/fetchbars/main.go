package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/config"
	"github.com/aman-zulfiqar/pair-sweeper/internal/fetchbars"
	"github.com/aman-zulfiqar/pair-sweeper/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main serves the fetch function behind a dispatch slot: as a Lambda
// handler inside the Lambda runtime, otherwise as POST /invoke.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	fetcher := fetchbars.New(fetchbars.Config{
		DefaultLimit: cfg.OHLCVLimit,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:       logger,
	})

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		logger.Info("starting lambda handler")
		lambda.Start(fetcher.Handle)
		return
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Fetcher: fetcher,
			DevMode: cfg.Debug,
			Logger:  logger,
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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{"addr": cfg.Addr, "auth": cfg.AuthKey != ""}).Info("fetch worker starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("fetch worker failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("fetch worker did not close cleanly")
	}
}
