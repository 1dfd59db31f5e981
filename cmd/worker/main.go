package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/stockflow/internal/config"
	"github.com/joao-fontenele/stockflow/internal/messaging"
	"github.com/joao-fontenele/stockflow/internal/sales"
	"github.com/joao-fontenele/stockflow/internal/store/postgres"
	"github.com/joao-fontenele/stockflow/internal/telemetry"
	"github.com/joao-fontenele/stockflow/internal/worker"
)

func main() {
	var cfg config.Worker
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if !cfg.Kafka.Enabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "worker", cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	gw := postgres.New(db)

	reportHandler, err := worker.NewReportHandler(gw, sales.NewAggregator(gw), cfg.LowStockThreshold, logger)
	if err != nil {
		logger.Error("failed to create report handler", "error", err)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.Kafka)
	defer func() { _ = consumer.Close() }()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         cfg.Addr("8083"),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting sales reporter", "brokers", cfg.Brokers, "topic", cfg.Topic, "group_id", cfg.GroupID)

	if err := consumer.Consume(ctx, reportHandler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
