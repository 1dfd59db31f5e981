package orders

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/stockflow/internal/domain"
)

// EventPublisher sends order lifecycle events. messaging.Producer satisfies
// it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

func newOrderEvent(eventType domain.OrderEventType, order *domain.Order) domain.OrderEvent {
	event := domain.OrderEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if order != nil {
		event.OrderID = order.ID
		event.CustomerName = order.CustomerName
		event.Status = order.Status
		event.PaymentMethod = order.PaymentMethod
		event.IsMember = order.IsMember
		event.Items = order.Items
	}
	return event
}

func eventKey(event domain.OrderEvent) string {
	if event.OrderID == 0 {
		return string(event.Type)
	}
	return strconv.FormatInt(event.OrderID, 10)
}
