package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/stockflow/internal/domain"
	"github.com/joao-fontenele/stockflow/internal/store"
)

func (q *queries) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO orders (status, customer_name, payment_method, is_member)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id, order_date
	`, o.Status, o.CustomerName, o.PaymentMethod, o.IsMember).Scan(&o.ID, &o.OrderDate)
	return translate(err, "insert order")
}

func (q *queries) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, order_date, status, customer_name, payment_method, is_member
		FROM orders
		WHERE id = $1
	`
	if q.inTx {
		query += " FOR UPDATE"
	}

	o := &domain.Order{}
	var paymentMethod sql.NullString
	err := q.db.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.OrderDate, &o.Status, &o.CustomerName, &paymentMethod, &o.IsMember)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "lock order")
	}
	o.PaymentMethod = paymentMethod.String

	return o, nil
}

func (q *queries) UpdateOrder(ctx context.Context, o *domain.Order) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, payment_method = NULLIF($3, ''), is_member = $4
		WHERE id = $1
	`, o.ID, o.Status, o.PaymentMethod, o.IsMember)
	if err != nil {
		return false, translate(err, "update order")
	}
	return affected(result, "update order")
}

func (q *queries) OrderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, item_price
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, translate(err, "list order lines")
	}
	defer func() { _ = rows.Close() }()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.ItemPrice); err != nil {
			return nil, translate(err, "scan order line")
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err, "list order lines")
	}

	return lines, nil
}

func (q *queries) InsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, item_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, line.OrderID, line.ProductID, line.Quantity, line.ItemPrice).Scan(&line.ID)
	return translate(err, "insert order line")
}

func (q *queries) UpsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, item_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, item_price = EXCLUDED.item_price
		RETURNING id
	`, line.OrderID, line.ProductID, line.Quantity, line.ItemPrice).Scan(&line.ID)
	return translate(err, "upsert order line")
}

func (q *queries) DeleteOrderLine(ctx context.Context, orderID, productID int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM order_lines
		WHERE order_id = $1 AND product_id = $2
	`, orderID, productID)
	return translate(err, "delete order line")
}

func (q *queries) DeleteAllOrders(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM order_lines`); err != nil {
		return translate(err, "delete order lines")
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return translate(err, "delete orders")
	}
	return nil
}

func (q *queries) OrderRows(ctx context.Context, status domain.OrderStatus, orderID int64) ([]store.OrderRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT o.id, o.order_date, o.status, o.customer_name, o.payment_method, o.is_member,
		       p.id, p.name, l.quantity, l.item_price
		FROM orders o
		LEFT JOIN order_lines l ON l.order_id = o.id
		LEFT JOIN products p ON p.id = l.product_id
		WHERE ($1::text = '' OR o.status = $1::text)
		  AND ($2::bigint = 0 OR o.id = $2::bigint)
		ORDER BY o.order_date DESC, o.id DESC, l.id
	`, string(status), orderID)
	if err != nil {
		return nil, translate(err, "list orders")
	}
	defer func() { _ = rows.Close() }()

	var result []store.OrderRow
	for rows.Next() {
		var (
			row           store.OrderRow
			paymentMethod sql.NullString
			productID     sql.NullInt64
			productName   sql.NullString
			quantity      sql.NullInt64
			itemPrice     decimal.NullDecimal
		)
		if err := rows.Scan(
			&row.OrderID, &row.OrderDate, &row.Status, &row.CustomerName, &paymentMethod, &row.IsMember,
			&productID, &productName, &quantity, &itemPrice,
		); err != nil {
			return nil, translate(err, "scan order row")
		}
		row.PaymentMethod = paymentMethod.String
		if productID.Valid {
			row.Item = &domain.OrderItem{
				ProductID:   productID.Int64,
				ProductName: productName.String,
				Quantity:    int(quantity.Int64),
				ItemPrice:   itemPrice.Decimal,
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err, "list orders")
	}

	return result, nil
}

func (q *queries) CompletedSales(ctx context.Context, paymentMethod string) ([]store.SaleLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT o.id, COALESCE(o.payment_method, ''), o.is_member, l.quantity, l.item_price
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		WHERE o.status = $1
		  AND ($2::text = '' OR o.payment_method = $2::text)
		ORDER BY o.id, l.id
	`, domain.OrderStatusCompleted, paymentMethod)
	if err != nil {
		return nil, translate(err, "list completed sales")
	}
	defer func() { _ = rows.Close() }()

	var lines []store.SaleLine
	for rows.Next() {
		var line store.SaleLine
		if err := rows.Scan(&line.OrderID, &line.PaymentMethod, &line.IsMember, &line.Quantity, &line.ItemPrice); err != nil {
			return nil, translate(err, "scan sale line")
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err, "list completed sales")
	}

	return lines, nil
}
