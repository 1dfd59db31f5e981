package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/stockflow/internal/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres implementation of store.Gateway.
type Store struct {
	queries
	db *sql.DB
}

var _ store.Gateway = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{queries: queries{db: db}, db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &queries{db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type queries struct {
	db   dbtx
	inTx bool
}

// translate maps constraint violations onto the store sentinels.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, store.ErrDuplicate, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, store.ErrMissingReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(result sql.Result, op string) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rows > 0, nil
}
