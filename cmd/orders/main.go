package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/stockflow/internal/config"
	"github.com/joao-fontenele/stockflow/internal/inventory"
	"github.com/joao-fontenele/stockflow/internal/messaging"
	"github.com/joao-fontenele/stockflow/internal/orders"
	"github.com/joao-fontenele/stockflow/internal/sales"
	"github.com/joao-fontenele/stockflow/internal/store/postgres"
	"github.com/joao-fontenele/stockflow/internal/telemetry"
)

func main() {
	var cfg config.Orders
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := context.Background()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "orders", cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	gw := postgres.New(db)

	svc, err := orders.NewService(gw, inventory.NewLedger(gw))
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	var publisher orders.EventPublisher
	if cfg.Kafka.Enabled() {
		producer := messaging.NewProducer(cfg.Kafka)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are disabled")
	}

	handler := orders.NewHandler(svc, publisher, logger)
	salesHandler := sales.NewHandler(sales.NewAggregator(gw), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("DELETE /orders", telemetry.WithHTTPRoute(handler.HandleClear))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PUT /orders/{id}", telemetry.WithHTTPRoute(handler.HandleEdit))
	mux.HandleFunc("POST /orders/{id}/close", telemetry.WithHTTPRoute(handler.HandleClose))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(handler.HandleCancel))
	mux.HandleFunc("GET /sales", telemetry.WithHTTPRoute(salesHandler.HandleRevenue))
	mux.HandleFunc("GET /sales/summary", telemetry.WithHTTPRoute(salesHandler.HandleSummary))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.Addr("8081"),
		Handler:      otelhttp.NewHandler(mux, "orders"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("starting orders service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
