// Package store defines the persistence gateway used by the inventory, orders
// and sales services.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/domain"
)

var (
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrMissingReference is returned when a write references a row that does
	// not exist.
	ErrMissingReference = errors.New("missing referenced row")
)

// OrderRow is one row of the orders ⟕ lines ⟕ products join. Item is nil for
// an order without lines.
type OrderRow struct {
	OrderID       int64
	OrderDate     time.Time
	Status        domain.OrderStatus
	CustomerName  string
	PaymentMethod string
	IsMember      bool
	Item          *domain.OrderItem
}

// SaleLine is one line of a completed order.
type SaleLine struct {
	OrderID       int64
	PaymentMethod string
	IsMember      bool
	Quantity      int
	ItemPrice     decimal.Decimal
}

// Queries is the row-level API. Lookups of a single row return nil, nil when
// the row does not exist; updates report whether a row was affected.
type Queries interface {
	InsertProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) (bool, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (bool, error)
	SetStock(ctx context.Context, productID int64, stock int) (bool, error)

	InsertOrder(ctx context.Context, o *domain.Order) error
	// LockOrder reads the order header and holds it until the surrounding
	// transaction ends.
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) (bool, error)
	OrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
	InsertOrderLine(ctx context.Context, line *domain.OrderLine) error
	UpsertOrderLine(ctx context.Context, line *domain.OrderLine) error
	DeleteOrderLine(ctx context.Context, orderID, productID int64) error
	DeleteAllOrders(ctx context.Context) error

	// OrderRows returns joined rows ordered by order date descending, then
	// order id descending, then line id. An empty status selects every order.
	OrderRows(ctx context.Context, status domain.OrderStatus, orderID int64) ([]OrderRow, error)
	// CompletedSales returns the lines of completed orders. An empty payment
	// method selects every completed order.
	CompletedSales(ctx context.Context, paymentMethod string) ([]SaleLine, error)
}

// Gateway is Queries outside a transaction plus the transactional scope.
// InTx commits when fn returns nil and rolls back otherwise.
type Gateway interface {
	Queries
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}
