package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderLine is a persisted order_lines row. ItemPrice is the unit price
// captured when the line was written.
type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	ItemPrice decimal.Decimal `json:"item_price"`
}

// OrderItem is a line as presented in an order listing.
type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	ItemPrice   decimal.Decimal `json:"item_price"`
}

// Subtotal returns quantity × item price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.ItemPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID            int64           `json:"id"`
	OrderDate     time.Time       `json:"order_date"`
	Status        OrderStatus     `json:"status"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	IsMember      bool            `json:"is_member"`
	Items         []OrderItem     `json:"items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// Quantities returns the order's product → quantity snapshot.
func (o Order) Quantities() map[int64]int {
	qty := make(map[int64]int, len(o.Items))
	for _, item := range o.Items {
		qty[item.ProductID] = item.Quantity
	}
	return qty
}
