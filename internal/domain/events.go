package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventUpdated   OrderEventType = "order.updated"
	OrderEventCompleted OrderEventType = "order.completed"
	OrderEventCancelled OrderEventType = "order.cancelled"
	OrderEventCleared   OrderEventType = "orders.cleared"
)

type OrderEvent struct {
	EventID       string         `json:"event_id"`
	Type          OrderEventType `json:"type"`
	OrderID       int64          `json:"order_id,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	Status        OrderStatus    `json:"status,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	IsMember      bool           `json:"is_member"`
	Items         []OrderItem    `json:"items,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
