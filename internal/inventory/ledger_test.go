package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
	"github.com/joao-fontenele/stockflow/internal/store/memory"
)

func TestLedger_ApplyDelta(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	ledger := NewLedger(gw)

	p := &domain.Product{Name: "Widget", Price: decimal.NewFromInt(1), Stock: 10}
	if err := gw.InsertProduct(ctx, p); err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}

	t.Run("applies positive and negative deltas", func(t *testing.T) {
		err := gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
			if err := ledger.ApplyDelta(ctx, q, p.ID, -4); err != nil {
				return err
			}
			return ledger.ApplyDelta(ctx, q, p.ID, 1)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _ := gw.GetProduct(ctx, p.ID)
		if got.Stock != 7 {
			t.Errorf("expected stock 7, got %d", got.Stock)
		}
	})

	t.Run("allows stock to go negative", func(t *testing.T) {
		err := gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
			return ledger.ApplyDelta(ctx, q, p.ID, -20)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _ := gw.GetProduct(ctx, p.ID)
		if got.Stock != -13 {
			t.Errorf("expected stock -13, got %d", got.Stock)
		}
	})

	t.Run("unknown product aborts the transaction", func(t *testing.T) {
		before, _ := gw.GetProduct(ctx, p.ID)

		err := gw.InTx(ctx, func(ctx context.Context, q store.Queries) error {
			if err := ledger.ApplyDelta(ctx, q, p.ID, 5); err != nil {
				return err
			}
			return ledger.ApplyDelta(ctx, q, 999, -1)
		})
		if !apperr.Is(err, apperr.CodeNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}

		after, _ := gw.GetProduct(ctx, p.ID)
		if after.Stock != before.Stock {
			t.Errorf("expected stock %d to be untouched, got %d", before.Stock, after.Stock)
		}
	})
}
