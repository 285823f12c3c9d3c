// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Command server runs the Streamfinder HTTP API.
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

	"github.com/tomtom215/streamfinder/internal/api"
	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/availability/sources"
	"github.com/tomtom215/streamfinder/internal/cache"
	"github.com/tomtom215/streamfinder/internal/config"
	"github.com/tomtom215/streamfinder/internal/embedding"
	"github.com/tomtom215/streamfinder/internal/logging"
	"github.com/tomtom215/streamfinder/internal/monetize"
	"github.com/tomtom215/streamfinder/internal/recommend"
)

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	// Trained model weights are optional; absence selects the closed-form
	// encoder and cosine scorer fallbacks.
	var model *embedding.ModelFile
	if cfg.Embedding.ModelPath != "" {
		model, err = embedding.LoadModel(cfg.Embedding.ModelPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Embedding.ModelPath).
				Msg("model load failed, falling back to closed-form strategies")
			model = nil
		}
	}

	embedCache := cache.New(cfg.Embedding.CacheTTL)
	defer embedCache.Close()
	aggCache := cache.New(cfg.Aggregator.CacheTTL)
	defer aggCache.Close()

	embeddings := embedding.NewService(
		embedding.NewEncoder(model, logger), embedCache, cfg.Embedding.ModelVersion, logger)
	scorer := embedding.NewScorer(model, logger)

	aggregator := availability.NewAggregator(buildSources(cfg), aggCache, availability.Options{
		MaxConcurrency: cfg.Aggregator.MaxConcurrency,
		SourceTimeout:  cfg.Aggregator.SourceTimeout,
		BatchDelay:     cfg.Aggregator.BatchDelay,
		BatchSize:      cfg.Aggregator.BatchSize,
		CacheTTL:       cfg.Aggregator.CacheTTL,
	}, logger)

	trainer := recommend.NewTrainer(recommend.Config{
		Factors:        cfg.Training.Factors,
		Regularization: cfg.Training.Regularization,
		MaxIterations:  cfg.Training.MaxIterations,
		RMSEThreshold:  cfg.Training.RMSEThreshold,
		Workers:        cfg.Training.Workers,
	}, logger)

	handler := api.NewHandler(embeddings, scorer, aggregator,
		monetize.NewLinker(cfg.Monetize.RefTag), trainer)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, &cfg.API),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// buildSources assembles the enabled catalog clients, each behind a circuit
// breaker.
func buildSources(cfg *config.Config) []availability.Source {
	var out []availability.Source

	if cfg.Sources.TMDB.Enabled {
		out = append(out, sources.WithBreaker(sources.NewTMDB(cfg.Sources.TMDB, "US")))
	}
	if cfg.Sources.Watchmode.Enabled {
		out = append(out, sources.WithBreaker(sources.NewWatchmode(cfg.Sources.Watchmode, "US")))
	}
	if cfg.Sources.Streaming.Enabled {
		out = append(out, sources.WithBreaker(sources.NewStreamingAvailability(cfg.Sources.Streaming, "us")))
	}
	if cfg.Sources.JustWatch.Enabled {
		out = append(out, sources.WithBreaker(sources.NewJustWatch(cfg.Sources.JustWatch, "US")))
	}
	return out
}
