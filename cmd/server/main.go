package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecobolig/housing-energy-etl/internal/adapter/httpapi"
	kafkaadapter "github.com/ecobolig/housing-energy-etl/internal/adapter/kafka"
	"github.com/ecobolig/housing-energy-etl/internal/config"
	"github.com/ecobolig/housing-energy-etl/internal/domain"
	"github.com/ecobolig/housing-energy-etl/internal/ingest"
	"github.com/ecobolig/housing-energy-etl/internal/observability"
	"github.com/ecobolig/housing-energy-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	perArea, err := domain.NewClassifier(cfg.PerAreaBounds)
	if err != nil {
		logger.Error("invalid per-area bounds", "error", err)
		os.Exit(1)
	}
	perResident, err := domain.NewClassifier(cfg.PerResidentBounds)
	if err != nil {
		logger.Error("invalid per-resident bounds", "error", err)
		os.Exit(1)
	}

	sources := pipeline.Sources{
		Buildings:   ingest.NewFileSource(cfg.BuildingsPath, cfg.XLSXSheet),
		Temperature: ingest.NewFileSource(cfg.TemperaturePath, cfg.XLSXSheet),
		Electricity: ingest.NewFileSource(cfg.ElectricityPath, cfg.XLSXSheet),
	}

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.SnapshotPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	builder := pipeline.New(sources, logger, metrics, publisher, cfg.ProjectType, cfg.CacheSize)

	srv := httpapi.NewServer(cfg.HTTPAddr, builder, httpapi.Classifiers{
		PerArea:     perArea,
		PerResident: perResident,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset so the first request does not pay the build cost.
	go func() {
		if _, err := builder.Dataset(ctx); err != nil {
			logger.Error("initial dataset build failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
