package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/config"
	"github.com/joao-fontenele/stockflow/internal/export"
	"github.com/joao-fontenele/stockflow/internal/inventory"
	"github.com/joao-fontenele/stockflow/internal/orders"
	"github.com/joao-fontenele/stockflow/internal/store/postgres"
	"github.com/joao-fontenele/stockflow/internal/telemetry"
)

// export writes completed orders to a CSV file under EXPORT_DIR and then
// deletes every order. It exits non-zero while orders are still pending.
func main() {
	var cfg config.Export
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	res, err := export.New(svc, cfg.Dir).ExportAndClear(ctx)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		logger.Info("no completed orders to export")
		return
	case apperr.Is(err, apperr.CodeStateConflict):
		logger.Error("close every pending order before exporting", "error", err)
		os.Exit(2)
	case err != nil:
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	logger.Info("orders exported and cleared", "path", res.Path, "orders", res.Orders, "rows", res.Rows)
}
