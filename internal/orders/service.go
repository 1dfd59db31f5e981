package orders

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/inventory"
	"github.com/joao-fontenele/stockflow/internal/store"
	"github.com/joao-fontenele/stockflow/internal/validation"
)

var tracer = otel.Tracer("orders")

type LineInput struct {
	ProductID int64           `json:"product_id" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateInput struct {
	CustomerName string      `json:"customer_name" validate:"required"`
	Lines        []LineInput `json:"items" validate:"min=1,dive"`
	IsMember     bool        `json:"is_member"`
}

// EditInput replaces an order's lines. Original is the product → quantity
// snapshot the caller based the edit on; when nil the persisted lines are
// used. A product missing from Lines is removed from the order.
type EditInput struct {
	Original map[int64]int `json:"original,omitempty"`
	Lines    []LineInput   `json:"items" validate:"dive"`
	IsMember *bool         `json:"is_member,omitempty"`
}

func validateLines(lines []LineInput) error {
	seen := make(map[int64]struct{}, len(lines))
	for i, line := range lines {
		if line.UnitPrice.IsNegative() {
			return apperr.New(apperr.CodeValidation, "validation failed").
				WithDetails(map[string]string{fmt.Sprintf("items[%d].unit_price", i): "must be greater than or equal to 0"})
		}
		if _, dup := seen[line.ProductID]; dup {
			return apperr.New(apperr.CodeValidation, "validation failed").
				WithDetails(map[string]string{fmt.Sprintf("items[%d].product_id", i): "is duplicated"})
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func lineQuantities(lines []LineInput) map[int64]int {
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		qty[line.ProductID] = line.Quantity
	}
	return qty
}

func persistedQuantities(lines []domain.OrderLine) map[int64]int {
	qty := make(map[int64]int, len(lines))
	for _, line := range lines {
		qty[line.ProductID] = line.Quantity
	}
	return qty
}

// Service is the order reconciliation engine. Every mutation runs in a
// single gateway transaction and keeps product stock equal to the net effect
// of the orders' current lines.
type Service struct {
	gw          store.Gateway
	ledger      *inventory.Ledger
	transitions metric.Int64Counter
	stockMoved  metric.Int64UpDownCounter
}

func NewService(gw store.Gateway, ledger *inventory.Ledger) (*Service, error) {
	meter := otel.Meter("orders")

	transitions, err := meter.Int64Counter("stockflow.orders.transitions",
		metric.WithDescription("Committed order operations by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}

	stockMoved, err := meter.Int64UpDownCounter("stockflow.stock.delta",
		metric.WithDescription("Net stock change applied by order operations"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stock delta counter: %w", err)
	}

	return &Service{
		gw:          gw,
		ledger:      ledger,
		transitions: transitions,
		stockMoved:  stockMoved,
	}, nil
}

// Create inserts a pending order, its lines, and takes each line's quantity
// out of stock. Nothing is persisted unless every step succeeds.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Create")
	defer span.End()

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if err := validation.Struct(in); err != nil {
		return nil, fail(span, err)
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, fail(span, err)
	}

	order := &domain.Order{
		Status:       domain.OrderStatusPending,
		CustomerName: in.CustomerName,
		IsMember:     in.IsMember,
	}

	var moved int
	err := s.gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
		if err := q.InsertOrder(ctx, order); err != nil {
			return storeError(err, "insert order")
		}

		for _, item := range in.Lines {
			line := &domain.OrderLine{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				ItemPrice: item.UnitPrice,
			}
			if err := q.InsertOrderLine(ctx, line); err != nil {
				return storeError(err, "insert order line")
			}
			if err := s.ledger.ApplyDelta(ctx, q, item.ProductID, -item.Quantity); err != nil {
				return err
			}
			moved -= item.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.Int("order.lines", len(in.Lines)))
	s.record(ctx, "created", moved)

	return s.Get(ctx, order.ID)
}

// Edit reconciles a pending order's lines with in.Lines: stock moves by
// original - new quantity for every product on either side, removed lines
// are deleted and the rest are upserted with their new quantity and price.
// An empty in.Lines is applied as-is; routing it to Cancel is up to the
// caller.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Edit", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, fail(span, err)
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, fail(span, err)
	}
	for productID, qty := range in.Original {
		if qty <= 0 {
			return nil, fail(span, apperr.Newf(apperr.CodeValidation, "original quantity for product %d must be positive", productID))
		}
	}

	updated := lineQuantities(in.Lines)

	var moved int
	err := s.gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
		order, err := lockPending(ctx, q, id)
		if err != nil {
			return err
		}

		persisted, err := q.OrderLines(ctx, id)
		if err != nil {
			return storeError(err, "read order lines")
		}
		current := persistedQuantities(persisted)

		original := in.Original
		if original == nil {
			original = current
		} else if !maps.Equal(original, current) {
			return apperr.Newf(apperr.CodeConflict, "order %d lines changed since they were read", id)
		}

		for _, d := range stockDeltas(original, updated) {
			if err := s.ledger.ApplyDelta(ctx, q, d.ProductID, d.Delta); err != nil {
				return err
			}
			moved += d.Delta
		}

		for _, productID := range removedProducts(original, updated) {
			if err := q.DeleteOrderLine(ctx, id, productID); err != nil {
				return storeError(err, "delete order line")
			}
		}

		for _, item := range in.Lines {
			line := &domain.OrderLine{
				OrderID:   id,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				ItemPrice: item.UnitPrice,
			}
			if err := q.UpsertOrderLine(ctx, line); err != nil {
				return storeError(err, "upsert order line")
			}
		}

		if in.IsMember != nil && *in.IsMember != order.IsMember {
			order.IsMember = *in.IsMember
			if _, err := q.UpdateOrder(ctx, order); err != nil {
				return storeError(err, "update order")
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.record(ctx, "edited", moved)
	return s.Get(ctx, id)
}

// Close completes a pending order and records how it was paid.
func (s *Service) Close(ctx context.Context, id int64, paymentMethod string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Close", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, fail(span, apperr.New(apperr.CodeValidation, "validation failed").
			WithDetails(map[string]string{"payment_method": "is required"}))
	}

	err := s.gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
		order, err := lockPending(ctx, q, id)
		if err != nil {
			return err
		}

		order.Status = domain.OrderStatusCompleted
		order.PaymentMethod = paymentMethod
		if _, err := q.UpdateOrder(ctx, order); err != nil {
			return storeError(err, "update order")
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.record(ctx, "completed", 0)
	return s.Get(ctx, id)
}

// Cancel moves a pending order to cancelled and returns the quantities held
// by its lines to stock. The lines are kept for the record.
func (s *Service) Cancel(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var moved int
	err := s.gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
		order, err := lockPending(ctx, q, id)
		if err != nil {
			return err
		}

		lines, err := q.OrderLines(ctx, id)
		if err != nil {
			return storeError(err, "read order lines")
		}
		for _, line := range lines {
			if err := s.ledger.ApplyDelta(ctx, q, line.ProductID, line.Quantity); err != nil {
				return err
			}
			moved += line.Quantity
		}

		order.Status = domain.OrderStatusCancelled
		if _, err := q.UpdateOrder(ctx, order); err != nil {
			return storeError(err, "update order")
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.record(ctx, "cancelled", moved)
	return s.Get(ctx, id)
}

// BulkClear deletes every order and line. Product stock is left as is.
func (s *Service) BulkClear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "orders.BulkClear")
	defer span.End()

	err := s.gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
		return storeError(q.DeleteAllOrders(ctx), "delete orders")
	})
	if err != nil {
		return fail(span, err)
	}

	s.record(ctx, "cleared", 0)
	return nil
}

// List returns orders with their items, most recent first. An empty status
// returns every order. It never writes.
func (s *Service) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.New(apperr.CodeValidation, "validation failed").
			WithDetails(map[string]string{"status": "must be one of [pending completed cancelled]"})
	}

	rows, err := s.gw.OrderRows(ctx, status, 0)
	if err != nil {
		return nil, storeError(err, "list orders")
	}
	return groupOrders(rows), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	rows, err := s.gw.OrderRows(ctx, "", id)
	if err != nil {
		return nil, storeError(err, "get order")
	}

	orders := groupOrders(rows)
	if len(orders) == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", id)
	}
	return &orders[0], nil
}

func (s *Service) record(ctx context.Context, kind string, moved int) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", kind)))
	if moved != 0 {
		s.stockMoved.Add(ctx, int64(moved), metric.WithAttributes(attribute.String("operation", kind)))
	}
}

func lockPending(ctx context.Context, q store.Queries, id int64) (*domain.Order, error) {
	order, err := q.LockOrder(ctx, id)
	if err != nil {
		return nil, storeError(err, "read order")
	}
	if order == nil {
		return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", id)
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperr.Newf(apperr.CodeStateConflict, "order %d is %s", id, order.Status).
			WithDetails(map[string]string{"status": string(order.Status)})
	}
	return order, nil
}

// storeError converts gateway errors into coded errors. Coded errors and nil
// pass through.
func storeError(err error, op string) error {
	if err == nil || apperr.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, store.ErrMissingReference):
		return apperr.Wrap(apperr.CodeNotFound, err, "referenced product does not exist")
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Wrap(apperr.CodeConflict, err, "order already has a line for this product")
	}
	return apperr.Wrap(apperr.CodeTransaction, err, op)
}

func fail(span trace.Span, err error) error {
	err = storeError(err, "transaction")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
