package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
)

func TestGroupOrders(t *testing.T) {
	day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	row := func(orderID int64, date time.Time, item *domain.OrderItem) store.OrderRow {
		return store.OrderRow{
			OrderID:      orderID,
			OrderDate:    date,
			Status:       domain.OrderStatusPending,
			CustomerName: "Ana",
			Item:         item,
		}
	}
	item := func(productID int64, qty int, price string) *domain.OrderItem {
		return &domain.OrderItem{ProductID: productID, Quantity: qty, ItemPrice: decimal.RequireFromString(price)}
	}

	t.Run("one record per order with all its items", func(t *testing.T) {
		rows := []store.OrderRow{
			row(7, day, item(1, 2, "10.00")),
			row(7, day, item(2, 1, "5.50")),
			row(7, day, item(3, 3, "1.25")),
		}

		orders := groupOrders(rows)
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if len(orders[0].Items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(orders[0].Items))
		}
		if want := decimal.RequireFromString("29.25"); !orders[0].TotalPrice.Equal(want) {
			t.Errorf("expected total %s, got %s", want, orders[0].TotalPrice)
		}
	})

	t.Run("keeps row order across orders", func(t *testing.T) {
		rows := []store.OrderRow{
			row(9, day.Add(time.Hour), item(1, 1, "1")),
			row(4, day, item(1, 1, "1")),
			row(4, day, item(2, 1, "1")),
		}

		orders := groupOrders(rows)
		if len(orders) != 2 || orders[0].ID != 9 || orders[1].ID != 4 {
			t.Fatalf("unexpected grouping: %+v", orders)
		}
	})

	t.Run("order without lines has empty items and zero total", func(t *testing.T) {
		orders := groupOrders([]store.OrderRow{row(3, day, nil)})
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].Items == nil || len(orders[0].Items) != 0 {
			t.Errorf("expected empty non-nil items, got %#v", orders[0].Items)
		}
		if !orders[0].TotalPrice.IsZero() {
			t.Errorf("expected zero total, got %s", orders[0].TotalPrice)
		}
	})

	t.Run("no rows", func(t *testing.T) {
		if orders := groupOrders(nil); orders == nil || len(orders) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", orders)
		}
	})
}
