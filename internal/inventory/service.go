package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
	"github.com/joao-fontenele/stockflow/internal/validation"
)

type ProductInput struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return apperr.New(apperr.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "must be greater than or equal to 0"})
	}
	return nil
}

// Service is the product catalog.
type Service struct {
	gw     store.Gateway
	ledger *Ledger
}

func NewService(gw store.Gateway, ledger *Ledger) *Service {
	return &Service{gw: gw, ledger: ledger}
}

func (s *Service) AddProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p := &domain.Product{Name: in.Name, Price: in.Price, Stock: in.Stock}
	if err := s.gw.InsertProduct(ctx, p); err != nil {
		return nil, productError(err, p.Name, "add product")
	}
	return p, nil
}

// UpdateProduct overwrites name, price and stock. It is the administrative
// edit path and does not touch orders.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p := &domain.Product{ID: id, Name: in.Name, Price: in.Price, Stock: in.Stock}
	ok, err := s.gw.UpdateProduct(ctx, p)
	if err != nil {
		return nil, productError(err, p.Name, "update product")
	}
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "product %d not found", id)
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.gw.GetProduct(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTransaction, err, "get product")
	}
	if p == nil {
		return nil, apperr.Newf(apperr.CodeNotFound, "product %d not found", id)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.gw.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTransaction, err, "list products")
	}
	return products, nil
}

// SetStock is the administrative stock correction.
func (s *Service) SetStock(ctx context.Context, id int64, stock int) (*domain.Product, error) {
	if err := s.ledger.SetAbsolute(ctx, id, stock); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func productError(err error, name, op string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Wrap(apperr.CodeConflict, err, "product name already exists").
			WithDetails(map[string]string{"name": name})
	}
	return apperr.Wrap(apperr.CodeTransaction, err, op)
}
