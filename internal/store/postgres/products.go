package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/stockflow/internal/domain"
)

func (q *queries) InsertProduct(ctx context.Context, p *domain.Product) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO products (name, price, stock)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Price, p.Stock).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err, "insert product")
}

func (q *queries) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}

	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(err, "get product")
	}

	return p, nil
}

func (q *queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, price, stock, created_at, updated_at
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, translate(err, "list products")
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, translate(err, "scan product")
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err, "list products")
	}

	return products, nil
}

func (q *queries) UpdateProduct(ctx context.Context, p *domain.Product) (bool, error) {
	err := q.db.QueryRowContext(ctx, `
		UPDATE products SET name = $2, price = $3, stock = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Price, p.Stock).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, translate(err, "update product")
	}
	return true, nil
}

func (q *queries) AdjustStock(ctx context.Context, productID int64, delta int) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, delta)
	if err != nil {
		return false, translate(err, "adjust stock")
	}
	return affected(result, "adjust stock")
}

func (q *queries) SetStock(ctx context.Context, productID int64, stock int) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE products SET stock = $2, updated_at = NOW()
		WHERE id = $1
	`, productID, stock)
	if err != nil {
		return false, translate(err, "set stock")
	}
	return affected(result, "set stock")
}
