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
	"github.com/joao-fontenele/stockflow/internal/store/postgres"
	"github.com/joao-fontenele/stockflow/internal/telemetry"
)

func main() {
	var cfg config.Inventory
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := context.Background()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "inventory", cfg.Telemetry)
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
	handler := inventory.NewHandler(inventory.NewService(gw, inventory.NewLedger(gw)), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(handler.HandleUpdate))
	mux.HandleFunc("PUT /products/{id}/stock", telemetry.WithHTTPRoute(handler.HandleSetStock))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.Addr("8082"),
		Handler:      otelhttp.NewHandler(mux, "inventory"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("starting inventory service", "addr", server.Addr)
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
