// Package export archives completed orders to CSV and then clears the order
// tables.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
)

// ErrNothingToExport is returned when there are no completed orders.
var ErrNothingToExport = errors.New("no completed orders to export")

var header = []string{
	"order_id",
	"customer_name",
	"order_date",
	"payment_method",
	"is_member",
	"product_name",
	"quantity",
	"item_price",
	"total_order_price",
}

// OrderSource is the slice of the order engine the exporter drives.
// *orders.Service satisfies it.
type OrderSource interface {
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	BulkClear(ctx context.Context) error
}

type Exporter struct {
	orders OrderSource
	dir    string
	now    func() time.Time
}

type Option func(*Exporter)

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func New(orders OrderSource, dir string, opts ...Option) *Exporter {
	e := &Exporter{orders: orders, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result describes a finished export.
type Result struct {
	Path   string
	Orders int
	Rows   int
}

// ExportAndClear writes every completed order to a timestamped CSV file in
// the export directory and then deletes all orders. It refuses to run while
// any order is pending. Orders are only cleared once the file is fully
// written.
func (e *Exporter) ExportAndClear(ctx context.Context) (*Result, error) {
	pending, err := e.orders.List(ctx, domain.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	if len(pending) > 0 {
		return nil, apperr.Newf(apperr.CodeStateConflict, "%d pending orders must be closed before exporting", len(pending)).
			WithDetails(map[string]string{"pending_orders": strconv.Itoa(len(pending))})
	}

	completed, err := e.orders.List(ctx, domain.OrderStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list completed orders: %w", err)
	}
	if len(completed) == 0 {
		return nil, ErrNothingToExport
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("orders_%s.csv", e.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(e.dir, name)

	rows, err := writeFile(path, completed)
	if err != nil {
		return nil, err
	}

	if err := e.orders.BulkClear(ctx); err != nil {
		return nil, fmt.Errorf("orders exported to %s but not cleared: %w", path, err)
	}

	return &Result{Path: path, Orders: len(completed), Rows: rows}, nil
}

// writeFile writes to a temporary file in the same directory and renames it
// into place, so a failed export never leaves a partial file at path.
func writeFile(path string, orders []domain.Order) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	rows, err := WriteCSV(tmp, orders)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("move export file: %w", err)
	}
	return rows, nil
}

// WriteCSV writes one row per order item, repeating the order columns, and
// returns the number of item rows written.
func WriteCSV(w io.Writer, orders []domain.Order) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	for _, o := range orders {
		for _, item := range o.Items {
			record := []string{
				strconv.FormatInt(o.ID, 10),
				o.CustomerName,
				o.OrderDate.UTC().Format(time.RFC3339),
				o.PaymentMethod,
				strconv.FormatBool(o.IsMember),
				item.ProductName,
				strconv.Itoa(item.Quantity),
				item.ItemPrice.StringFixed(2),
				o.TotalPrice.StringFixed(2),
			}
			if err := cw.Write(record); err != nil {
				return rows, fmt.Errorf("write csv row for order %d: %w", o.ID, err)
			}
			rows++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}
