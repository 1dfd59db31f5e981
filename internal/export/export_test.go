package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/inventory"
	"github.com/joao-fontenele/stockflow/internal/orders"
	"github.com/joao-fontenele/stockflow/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestWriteCSV(t *testing.T) {
	date := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	completed := []domain.Order{{
		ID:            7,
		OrderDate:     date,
		Status:        domain.OrderStatusCompleted,
		CustomerName:  "Ana, Jr.",
		PaymentMethod: "cash",
		IsMember:      true,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Widget", Quantity: 2, ItemPrice: decimal.RequireFromString("10")},
			{ProductID: 2, ProductName: "Gadget", Quantity: 1, ItemPrice: decimal.RequireFromString("4.5")},
		},
		TotalPrice: decimal.RequireFromString("24.5"),
	}}

	var buf bytes.Buffer
	rows, err := WriteCSV(&buf, completed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 2 {
		t.Errorf("expected 2 rows, got %d", rows)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}

	want := []string{"7", "Ana, Jr.", "2024-03-09T10:00:00Z", "cash", "true", "Gadget", "1", "4.50", "24.50"}
	for i, field := range want {
		if records[2][i] != field {
			t.Errorf("column %s: expected %q, got %q", header[i], field, records[2][i])
		}
	}
}

type fixture struct {
	gw       *memory.Store
	svc      *orders.Service
	exporter *Exporter
	dir      string
	widget   *domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gw := memory.New()
	svc, err := orders.NewService(gw, inventory.NewLedger(gw))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	widget := &domain.Product{Name: "Widget", Price: decimal.NewFromInt(10), Stock: 10}
	if err := gw.InsertProduct(context.Background(), widget); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "csv_exports")
	return &fixture{
		gw:       gw,
		svc:      svc,
		exporter: New(svc, dir, WithClock(func() time.Time { return fixedNow })),
		dir:      dir,
		widget:   widget,
	}
}

func (f *fixture) place(t *testing.T, qty int) *domain.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), orders.CreateInput{
		CustomerName: "Ana",
		Lines:        []orders.LineInput{{ProductID: f.widget.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order
}

func TestExporter_ExportAndClear(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while orders are pending", func(t *testing.T) {
		f := newFixture(t)
		f.place(t, 1)

		_, err := f.exporter.ExportAndClear(ctx)
		if !apperr.Is(err, apperr.CodeStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if _, err := os.Stat(f.dir); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected no export directory to be created")
		}

		remaining, _ := f.svc.List(ctx, "")
		if len(remaining) != 1 {
			t.Errorf("expected orders to be kept, got %d", len(remaining))
		}
	})

	t.Run("nothing completed", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.exporter.ExportAndClear(ctx); !errors.Is(err, ErrNothingToExport) {
			t.Fatalf("expected ErrNothingToExport, got %v", err)
		}
	})

	t.Run("writes completed orders and clears everything", func(t *testing.T) {
		f := newFixture(t)

		first := f.place(t, 2)
		second := f.place(t, 3)
		cancelled := f.place(t, 1)
		for _, id := range []int64{first.ID, second.ID} {
			if _, err := f.svc.Close(ctx, id, "cash"); err != nil {
				t.Fatalf("failed to close order: %v", err)
			}
		}
		if _, err := f.svc.Cancel(ctx, cancelled.ID); err != nil {
			t.Fatalf("failed to cancel order: %v", err)
		}

		res, err := f.exporter.ExportAndClear(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantPath := filepath.Join(f.dir, "orders_2024-03-09_14-05-07.csv")
		if res.Path != wantPath {
			t.Errorf("expected path %s, got %s", wantPath, res.Path)
		}
		if res.Orders != 2 || res.Rows != 2 {
			t.Errorf("unexpected result: %+v", res)
		}

		file, err := os.Open(res.Path)
		if err != nil {
			t.Fatalf("failed to open export: %v", err)
		}
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("expected header plus 2 rows, got %d", len(records))
		}

		remaining, _ := f.svc.List(ctx, "")
		if len(remaining) != 0 {
			t.Errorf("expected orders to be cleared, got %d", len(remaining))
		}

		p, _ := f.gw.GetProduct(ctx, f.widget.ID)
		if p.Stock != 5 {
			t.Errorf("expected stock 5 to survive the clear, got %d", p.Stock)
		}

		entries, _ := os.ReadDir(f.dir)
		if len(entries) != 1 {
			t.Errorf("expected only the export file in the directory, got %d entries", len(entries))
		}
	})
}
