package budget

import (
	"context"

	"expenseflow/internal/domain/auth"
)

type StoreAPI interface {
	CreateBudget(ctx context.Context, b Budget) error
	GetBudget(ctx context.Context, budgetID string) (Budget, error)
	ListBudgets(ctx context.Context, scope auth.Scope, filter Filter) ([]Budget, error)
}
