package querier

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	apperrors "expenseflow/internal/errors"
)

func TestMapError(t *testing.T) {
	notFound := apperrors.New(apperrors.CodeNotFound, "missing")
	conflict := apperrors.New(apperrors.CodeConflict, "dup")

	assert.NoError(t, MapError("op", nil, notFound, conflict))
	assert.Same(t, notFound, MapError("op", pgx.ErrNoRows, notFound, conflict))
	assert.Same(t, conflict, MapError("op", &pgconn.PgError{Code: "23505"}, notFound, conflict))
	assert.True(t, apperrors.IsCode(MapError("op", &pgconn.PgError{Code: "23503"}, notFound, conflict), apperrors.CodeInternal))
	assert.True(t, apperrors.IsCode(MapError("op", errors.New("dial tcp: refused"), notFound, conflict), apperrors.CodeUnavailable))
	assert.True(t, apperrors.IsCode(MapError("op", pgx.ErrNoRows, nil, nil), apperrors.CodeNotFound))
}

func TestDollar(t *testing.T) {
	var args []any
	bind := Dollar(&args)
	assert.Equal(t, "$1", bind("a"))
	assert.Equal(t, "$2", bind(2))
	assert.Equal(t, []any{"a", 2}, args)
}
