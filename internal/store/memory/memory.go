// Package memory is an in-process store.Gateway. Transactions run against a
// copy of the data set and replace it on commit; one transaction runs at a
// time.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
)

type Option func(*Store)

// WithClock sets the clock used for order dates and product timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

var _ store.Gateway = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		data: &dataset{
			products: make(map[int64]domain.Product),
			orders:   make(map[int64]domain.Order),
			lines:    make(map[int64]domain.OrderLine),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dataset struct {
	lastProductID int64
	lastOrderID   int64
	lastLineID    int64
	products      map[int64]domain.Product
	orders        map[int64]domain.Order
	lines         map[int64]domain.OrderLine
}

func (d *dataset) clone() *dataset {
	return &dataset{
		lastProductID: d.lastProductID,
		lastOrderID:   d.lastOrderID,
		lastLineID:    d.lastLineID,
		products:      maps.Clone(d.products),
		orders:        maps.Clone(d.orders),
		lines:         maps.Clone(d.lines),
	}
}

// InTx must not call back into s; use q for every read and write.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.data.clone()
	if err := fn(ctx, &queries{d: working, now: s.now}); err != nil {
		return err
	}

	s.data = working
	return nil
}

func (s *Store) view() (*queries, func()) {
	s.mu.Lock()
	return &queries{d: s.data, now: s.now}, s.mu.Unlock
}

func (s *Store) InsertProduct(ctx context.Context, p *domain.Product) error {
	q, unlock := s.view()
	defer unlock()
	return q.InsertProduct(ctx, p)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	q, unlock := s.view()
	defer unlock()
	return q.GetProduct(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	q, unlock := s.view()
	defer unlock()
	return q.ListProducts(ctx)
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) (bool, error) {
	q, unlock := s.view()
	defer unlock()
	return q.UpdateProduct(ctx, p)
}

func (s *Store) AdjustStock(ctx context.Context, productID int64, delta int) (bool, error) {
	q, unlock := s.view()
	defer unlock()
	return q.AdjustStock(ctx, productID, delta)
}

func (s *Store) SetStock(ctx context.Context, productID int64, stock int) (bool, error) {
	q, unlock := s.view()
	defer unlock()
	return q.SetStock(ctx, productID, stock)
}

func (s *Store) InsertOrder(ctx context.Context, o *domain.Order) error {
	q, unlock := s.view()
	defer unlock()
	return q.InsertOrder(ctx, o)
}

func (s *Store) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	q, unlock := s.view()
	defer unlock()
	return q.LockOrder(ctx, id)
}

func (s *Store) UpdateOrder(ctx context.Context, o *domain.Order) (bool, error) {
	q, unlock := s.view()
	defer unlock()
	return q.UpdateOrder(ctx, o)
}

func (s *Store) OrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	q, unlock := s.view()
	defer unlock()
	return q.OrderLines(ctx, orderID)
}

func (s *Store) InsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	q, unlock := s.view()
	defer unlock()
	return q.InsertOrderLine(ctx, line)
}

func (s *Store) UpsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	q, unlock := s.view()
	defer unlock()
	return q.UpsertOrderLine(ctx, line)
}

func (s *Store) DeleteOrderLine(ctx context.Context, orderID, productID int64) error {
	q, unlock := s.view()
	defer unlock()
	return q.DeleteOrderLine(ctx, orderID, productID)
}

func (s *Store) DeleteAllOrders(ctx context.Context) error {
	q, unlock := s.view()
	defer unlock()
	return q.DeleteAllOrders(ctx)
}

func (s *Store) OrderRows(ctx context.Context, status domain.OrderStatus, orderID int64) ([]store.OrderRow, error) {
	q, unlock := s.view()
	defer unlock()
	return q.OrderRows(ctx, status, orderID)
}

func (s *Store) CompletedSales(ctx context.Context, paymentMethod string) ([]store.SaleLine, error) {
	q, unlock := s.view()
	defer unlock()
	return q.CompletedSales(ctx, paymentMethod)
}
