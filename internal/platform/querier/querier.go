// Package querier is the pgx surface shared by the Postgres stores. Both
// *pgxpool.Pool and pgx.Tx satisfy Querier.
package querier

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "expenseflow/internal/errors"
)

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const uniqueViolation = "23505"

// MapError translates a pgx error into the domain taxonomy. notFound is
// returned for pgx.ErrNoRows; conflict for unique violations.
func MapError(op string, err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if notFound != nil {
			return notFound
		}
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation && conflict != nil {
			return conflict
		}
		return apperrors.Wrap(apperrors.CodeInternal, op, err)
	}
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeUnavailable, op, fmt.Errorf("storage: %w", err))
}

// Dollar returns an ArgFunc-compatible binder producing $n placeholders.
func Dollar(args *[]any) func(value any) string {
	return func(value any) string {
		*args = append(*args, value)
		return fmt.Sprintf("$%d", len(*args))
	}
}
