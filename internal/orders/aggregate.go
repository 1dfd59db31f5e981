package orders

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
)

// groupOrders folds joined rows into one order per id, keeping the order in
// which ids first appear.
func groupOrders(rows []store.OrderRow) []domain.Order {
	orders := []domain.Order{}
	index := make(map[int64]int)

	for _, row := range rows {
		i, ok := index[row.OrderID]
		if !ok {
			i = len(orders)
			index[row.OrderID] = i
			orders = append(orders, domain.Order{
				ID:            row.OrderID,
				OrderDate:     row.OrderDate,
				Status:        row.Status,
				CustomerName:  row.CustomerName,
				PaymentMethod: row.PaymentMethod,
				IsMember:      row.IsMember,
				Items:         []domain.OrderItem{},
				TotalPrice:    decimal.Zero,
			})
		}

		if row.Item == nil {
			continue
		}
		order := &orders[i]
		order.Items = append(order.Items, *row.Item)
		order.TotalPrice = order.TotalPrice.Add(row.Item.Subtotal())
	}

	return orders
}
