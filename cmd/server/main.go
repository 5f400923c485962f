package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docinsight/internal/config"
	"docinsight/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docinsight:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer log.Sync()

	settings, err := config.NewSettingsStore(cfg.DataDir, cfg.SettingsSecret)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	// Override with saved settings if they exist
	if saved, err := settings.Load(); err != nil {
		log.Warn("ignoring saved settings", zap.String("path", settings.Path()), zap.Error(err))
	} else if saved != nil {
		log.Info("loading saved settings", zap.String("path", settings.Path()))
		cfg.Apply(saved)
	}

	provider, err := cfg.NewProvider()
	switch {
	case errors.Is(err, config.ErrNoAPIKey):
		log.Warn("no API key configured; summaries and answers are unavailable until one is set",
			zap.String("provider", cfg.Provider))
	case err != nil:
		return err
	default:
		log.Info("language model ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	}

	srv := newServer(cfg, settings, provider, log)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("DocInsight server starting", zap.String("url", "http://localhost:"+cfg.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
