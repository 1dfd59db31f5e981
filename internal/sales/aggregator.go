// Package sales reports revenue over completed orders. It only reads.
package sales

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/apperr"
	"github.com/joao-fontenele/stockflow/internal/store"
)

// memberRate is what a member pays: a 15% discount.
var memberRate = decimal.RequireFromString("0.85")

// Reader is the part of the gateway the aggregator needs.
type Reader interface {
	CompletedSales(ctx context.Context, paymentMethod string) ([]store.SaleLine, error)
}

type Aggregator struct {
	reader Reader
}

func NewAggregator(reader Reader) *Aggregator {
	return &Aggregator{reader: reader}
}

// MethodRevenue is the revenue collected through one payment method.
type MethodRevenue struct {
	PaymentMethod string          `json:"payment_method"`
	Orders        int             `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type Summary struct {
	CompletedOrders int             `json:"completed_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	ByPaymentMethod []MethodRevenue `json:"by_payment_method"`
}

// LineRevenue is quantity × item price, discounted for member orders.
func LineRevenue(line store.SaleLine) decimal.Decimal {
	amount := line.ItemPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if line.IsMember {
		amount = amount.Mul(memberRate)
	}
	return amount
}

// TotalRevenue sums completed orders, optionally only those paid with
// paymentMethod. It is zero when nothing matches.
func (a *Aggregator) TotalRevenue(ctx context.Context, paymentMethod string) (decimal.Decimal, error) {
	lines, err := a.reader.CompletedSales(ctx, paymentMethod)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.CodeTransaction, err, "read completed sales")
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineRevenue(line))
	}
	return total.Round(2), nil
}

// RevenueByPaymentMethod breaks revenue down per payment method label,
// sorted by label.
func (a *Aggregator) RevenueByPaymentMethod(ctx context.Context) ([]MethodRevenue, error) {
	summary, err := a.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return summary.ByPaymentMethod, nil
}

func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	lines, err := a.reader.CompletedSales(ctx, "")
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.CodeTransaction, err, "read completed sales")
	}
	return Summarize(lines), nil
}

// Summarize folds completed sale lines into totals.
func Summarize(lines []store.SaleLine) Summary {
	type bucket struct {
		orders  map[int64]struct{}
		revenue decimal.Decimal
	}

	buckets := map[string]*bucket{}
	orders := map[int64]struct{}{}
	total := decimal.Zero

	for _, line := range lines {
		amount := LineRevenue(line)
		total = total.Add(amount)
		orders[line.OrderID] = struct{}{}

		b, ok := buckets[line.PaymentMethod]
		if !ok {
			b = &bucket{orders: map[int64]struct{}{}, revenue: decimal.Zero}
			buckets[line.PaymentMethod] = b
		}
		b.orders[line.OrderID] = struct{}{}
		b.revenue = b.revenue.Add(amount)
	}

	breakdown := make([]MethodRevenue, 0, len(buckets))
	for method, b := range buckets {
		breakdown = append(breakdown, MethodRevenue{
			PaymentMethod: method,
			Orders:        len(b.orders),
			Revenue:       b.revenue.Round(2),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].PaymentMethod < breakdown[j].PaymentMethod })

	return Summary{
		CompletedOrders: len(orders),
		TotalRevenue:    total.Round(2),
		ByPaymentMethod: breakdown,
	}
}
