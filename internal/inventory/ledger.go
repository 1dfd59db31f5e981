package inventory

import (
	"context"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/store"
)

// Ledger owns product stock levels.
type Ledger struct {
	gw store.Gateway
}

func NewLedger(gw store.Gateway) *Ledger {
	return &Ledger{gw: gw}
}

// ApplyDelta adds delta to the product's stock through q, so the change
// commits or rolls back with the caller's transaction. Stock may go negative.
func (l *Ledger) ApplyDelta(ctx context.Context, q store.Queries, productID int64, delta int) error {
	if delta == 0 {
		return nil
	}

	ok, err := q.AdjustStock(ctx, productID, delta)
	if err != nil {
		return apperr.Wrap(apperr.CodeTransaction, err, "adjust stock")
	}
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "product %d not found", productID)
	}
	return nil
}

// SetAbsolute overwrites the product's stock outside any order transaction.
func (l *Ledger) SetAbsolute(ctx context.Context, productID int64, stock int) error {
	if stock < 0 {
		return apperr.New(apperr.CodeValidation, "stock must not be negative").
			WithDetails(map[string]string{"stock": "must be greater than or equal to 0"})
	}

	ok, err := l.gw.SetStock(ctx, productID, stock)
	if err != nil {
		return apperr.Wrap(apperr.CodeTransaction, err, "set stock")
	}
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "product %d not found", productID)
	}
	return nil
}
