package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/messaging"
	"github.com/joao-fontenele/stockflow/internal/sales"
)

type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type SalesReporter interface {
	Summary(ctx context.Context) (sales.Summary, error)
}

// ReportHandler consumes order events. Completed orders trigger a sales
// summary log line; events that move stock trigger low-stock checks on the
// products involved.
type ReportHandler struct {
	products  ProductReader
	sales     SalesReporter
	threshold int
	alerts    metric.Int64Counter
	logger    *slog.Logger
}

func NewReportHandler(products ProductReader, reporter SalesReporter, threshold int, logger *slog.Logger) (*ReportHandler, error) {
	alerts, err := otel.Meter("worker").Int64Counter("stockflow.stock.low_alerts",
		metric.WithDescription("Products found at or below the low-stock threshold"),
	)
	if err != nil {
		return nil, fmt.Errorf("create low stock counter: %w", err)
	}

	return &ReportHandler{
		products:  products,
		sales:     reporter,
		threshold: threshold,
		alerts:    alerts,
		logger:    logger,
	}, nil
}

func (h *ReportHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping unreadable order event", "error", err)
		return fmt.Errorf("%w: %v", messaging.ErrMalformed, err)
	}

	h.logger.Info("processing order event", "event_id", event.EventID, "type", event.Type, "order_id", event.OrderID)

	switch event.Type {
	case domain.OrderEventCreated, domain.OrderEventUpdated, domain.OrderEventCancelled:
		return h.checkStock(ctx, event)
	case domain.OrderEventCompleted:
		return h.reportSales(ctx, event)
	case domain.OrderEventCleared:
		h.logger.Info("orders cleared", "event_id", event.EventID)
		return nil
	default:
		h.logger.Warn("ignoring unknown order event", "event_id", event.EventID, "type", event.Type)
		return nil
	}
}

func (h *ReportHandler) checkStock(ctx context.Context, event domain.OrderEvent) error {
	for _, item := range event.Items {
		p, err := h.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("read product %d: %w", item.ProductID, err)
		}
		if p == nil {
			h.logger.Warn("order references a deleted product", "order_id", event.OrderID, "product_id", item.ProductID)
			continue
		}
		if p.Stock > h.threshold {
			continue
		}

		severity := "low"
		if p.Stock < 0 {
			severity = "oversold"
		}
		h.alerts.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
		h.logger.Warn("product stock is low",
			"product_id", p.ID,
			"product_name", p.Name,
			"stock", p.Stock,
			"threshold", h.threshold,
			"severity", severity,
			"order_id", event.OrderID,
		)
	}
	return nil
}

func (h *ReportHandler) reportSales(ctx context.Context, event domain.OrderEvent) error {
	summary, err := h.sales.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summarize sales: %w", err)
	}

	breakdown := make([]any, 0, len(summary.ByPaymentMethod)*2)
	for _, m := range summary.ByPaymentMethod {
		breakdown = append(breakdown, m.PaymentMethod, m.Revenue.StringFixed(2))
	}

	h.logger.Info("sales summary",
		"order_id", event.OrderID,
		"payment_method", event.PaymentMethod,
		"completed_orders", summary.CompletedOrders,
		"total_revenue", summary.TotalRevenue.StringFixed(2),
		slog.Group("by_payment_method", breakdown...),
	)
	return nil
}
