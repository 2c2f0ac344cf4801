package users

import (
	"context"

	"expenseflow/internal/domain/auth"
)

type StoreAPI interface {
	GetUser(ctx context.Context, userID string) (User, error)
	ListUsers(ctx context.Context, filter ListFilter) (Page, error)
	// ActiveByRole returns active users holding role ordered by id.
	ActiveByRole(ctx context.Context, role auth.Role) ([]User, error)
	UpdateRole(ctx context.Context, userID string, role auth.Role) (bool, error)
	SetActive(ctx context.Context, userID string, active bool) (bool, error)
}
