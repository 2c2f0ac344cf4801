package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/config"
)

// Seed creates the bootstrap ADMIN so that roles can be assigned through the
// API. It is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (string, error) {
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (id, email, name, role, is_active)
    VALUES ($1, $2, $3, $4, true)
    ON CONFLICT (email) DO NOTHING
  `, uuid.NewString(), email, "Administrator", auth.RoleAdmin)
	if err != nil {
		return "", err
	}
	err = pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	return id, err
}
