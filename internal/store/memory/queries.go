package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
)

type queries struct {
	d   *dataset
	now func() time.Time
}

func (q *queries) nameTaken(name string, exceptID int64) bool {
	for id, p := range q.d.products {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

func (q *queries) InsertProduct(_ context.Context, p *domain.Product) error {
	if q.nameTaken(p.Name, 0) {
		return fmt.Errorf("insert product: %w: name %q", store.ErrDuplicate, p.Name)
	}

	q.d.lastProductID++
	p.ID = q.d.lastProductID
	p.CreatedAt = q.now()
	p.UpdatedAt = p.CreatedAt
	q.d.products[p.ID] = *p
	return nil
}

func (q *queries) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := q.d.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (q *queries) ListProducts(_ context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(q.d.products))
	for _, p := range q.d.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return strings.Compare(products[i].Name, products[j].Name) < 0
	})
	return products, nil
}

func (q *queries) UpdateProduct(_ context.Context, p *domain.Product) (bool, error) {
	current, ok := q.d.products[p.ID]
	if !ok {
		return false, nil
	}
	if q.nameTaken(p.Name, p.ID) {
		return false, fmt.Errorf("update product: %w: name %q", store.ErrDuplicate, p.Name)
	}

	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = q.now()
	q.d.products[p.ID] = *p
	return true, nil
}

func (q *queries) AdjustStock(_ context.Context, productID int64, delta int) (bool, error) {
	p, ok := q.d.products[productID]
	if !ok {
		return false, nil
	}
	p.Stock += delta
	p.UpdatedAt = q.now()
	q.d.products[productID] = p
	return true, nil
}

func (q *queries) SetStock(_ context.Context, productID int64, stock int) (bool, error) {
	p, ok := q.d.products[productID]
	if !ok {
		return false, nil
	}
	p.Stock = stock
	p.UpdatedAt = q.now()
	q.d.products[productID] = p
	return true, nil
}

func (q *queries) InsertOrder(_ context.Context, o *domain.Order) error {
	q.d.lastOrderID++
	o.ID = q.d.lastOrderID
	o.OrderDate = q.now()
	q.d.orders[o.ID] = header(*o)
	return nil
}

func header(o domain.Order) domain.Order {
	o.Items = nil
	return o
}

func (q *queries) LockOrder(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := q.d.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (q *queries) UpdateOrder(_ context.Context, o *domain.Order) (bool, error) {
	current, ok := q.d.orders[o.ID]
	if !ok {
		return false, nil
	}
	current.Status = o.Status
	current.PaymentMethod = o.PaymentMethod
	current.IsMember = o.IsMember
	q.d.orders[o.ID] = current
	return true, nil
}

func (q *queries) OrderLines(_ context.Context, orderID int64) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	for _, line := range q.d.lines {
		if line.OrderID == orderID {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (q *queries) findLine(orderID, productID int64) (domain.OrderLine, bool) {
	for _, line := range q.d.lines {
		if line.OrderID == orderID && line.ProductID == productID {
			return line, true
		}
	}
	return domain.OrderLine{}, false
}

func (q *queries) checkReferences(line *domain.OrderLine) error {
	if _, ok := q.d.orders[line.OrderID]; !ok {
		return fmt.Errorf("%w: order %d", store.ErrMissingReference, line.OrderID)
	}
	if _, ok := q.d.products[line.ProductID]; !ok {
		return fmt.Errorf("%w: product %d", store.ErrMissingReference, line.ProductID)
	}
	return nil
}

func (q *queries) InsertOrderLine(_ context.Context, line *domain.OrderLine) error {
	if err := q.checkReferences(line); err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	if _, exists := q.findLine(line.OrderID, line.ProductID); exists {
		return fmt.Errorf("insert order line: %w: order %d product %d", store.ErrDuplicate, line.OrderID, line.ProductID)
	}

	q.d.lastLineID++
	line.ID = q.d.lastLineID
	q.d.lines[line.ID] = *line
	return nil
}

func (q *queries) UpsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	existing, ok := q.findLine(line.OrderID, line.ProductID)
	if !ok {
		return q.InsertOrderLine(ctx, line)
	}
	if err := q.checkReferences(line); err != nil {
		return fmt.Errorf("upsert order line: %w", err)
	}

	line.ID = existing.ID
	q.d.lines[line.ID] = *line
	return nil
}

func (q *queries) DeleteOrderLine(_ context.Context, orderID, productID int64) error {
	if line, ok := q.findLine(orderID, productID); ok {
		delete(q.d.lines, line.ID)
	}
	return nil
}

func (q *queries) DeleteAllOrders(_ context.Context) error {
	clear(q.d.lines)
	clear(q.d.orders)
	return nil
}

func (q *queries) OrderRows(_ context.Context, status domain.OrderStatus, orderID int64) ([]store.OrderRow, error) {
	var selected []domain.Order
	for _, o := range q.d.orders {
		if status != "" && o.Status != status {
			continue
		}
		if orderID != 0 && o.ID != orderID {
			continue
		}
		selected = append(selected, o)
	}
	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].OrderDate.Equal(selected[j].OrderDate) {
			return selected[i].OrderDate.After(selected[j].OrderDate)
		}
		return selected[i].ID > selected[j].ID
	})

	var rows []store.OrderRow
	for _, o := range selected {
		base := store.OrderRow{
			OrderID:       o.ID,
			OrderDate:     o.OrderDate,
			Status:        o.Status,
			CustomerName:  o.CustomerName,
			PaymentMethod: o.PaymentMethod,
			IsMember:      o.IsMember,
		}

		lines, _ := q.OrderLines(context.Background(), o.ID)
		if len(lines) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, line := range lines {
			row := base
			row.Item = &domain.OrderItem{
				ProductID:   line.ProductID,
				ProductName: q.d.products[line.ProductID].Name,
				Quantity:    line.Quantity,
				ItemPrice:   line.ItemPrice,
			}
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func (q *queries) CompletedSales(_ context.Context, paymentMethod string) ([]store.SaleLine, error) {
	var sales []store.SaleLine
	for _, line := range q.d.lines {
		o, ok := q.d.orders[line.OrderID]
		if !ok || o.Status != domain.OrderStatusCompleted {
			continue
		}
		if paymentMethod != "" && o.PaymentMethod != paymentMethod {
			continue
		}
		sales = append(sales, store.SaleLine{
			OrderID:       o.ID,
			PaymentMethod: o.PaymentMethod,
			IsMember:      o.IsMember,
			Quantity:      line.Quantity,
			ItemPrice:     line.ItemPrice,
		})
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].OrderID < sales[j].OrderID })
	return sales, nil
}
