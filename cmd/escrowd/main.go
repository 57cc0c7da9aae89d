package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"escrowboard/internal/app"
	"escrowboard/internal/config"
	"escrowboard/internal/idempotency"
	"escrowboard/internal/metrics"
	"escrowboard/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("config error")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("idempotency store error")
	}
	defer closeStore()

	reg := metrics.New()
	a, err := app.New(ctx, app.Deps{Config: cfg, Logger: logger, Metrics: reg})
	if err != nil {
		logger.WithError(err).Fatal("startup error")
	}
	defer a.Close()

	// a failed connect is terminal; the API keeps serving its state
	if err := a.Session.Connect(ctx); err != nil {
		logger.WithError(err).Error("session not connected")
	}

	apiServer := server.New(server.Options{
		Config:    cfg,
		Session:   a.Session,
		Store:     store,
		Metrics:   reg,
		Logger:    logger,
		Contract:  a.Contract,
		RPCHealth: a.RPCHealth(),
	})

	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("Received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiServer.Shutdown(shutdownCtx)
}

// openStore prefers Postgres and falls back to a local file.
func openStore(ctx context.Context, cfg *config.AppConfig) (idempotency.Store, func(), error) {
	if cfg.Stores.PostgresDSN != "" {
		pg, err := idempotency.NewPostgresStore(ctx, cfg.Stores.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	path := cfg.Service.IdempotencyStorePath
	if path == "" {
		path = filepath.Join(os.TempDir(), "escrowboard-idem.json")
	}
	fs, err := idempotency.NewFileStore(path)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}
