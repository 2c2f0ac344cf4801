package budget

import (
	"context"

	"github.com/shopspring/decimal"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)

const budgetColumns = `id, department_id, period, amount::text, currency, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (Budget, error) {
	var b Budget
	var amount string
	if err := row.Scan(&b.ID, &b.DepartmentID, &b.Period, &amount, &b.Currency, &b.CreatedBy, &b.CreatedAt); err != nil {
		return Budget{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Budget{}, err
	}
	b.Amount = parsed
	return b, nil
}

func (s *Store) CreateBudget(ctx context.Context, b Budget) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO budgets (id, department_id, period, amount, currency, created_by, created_at)
    VALUES ($1,$2,$3,$4::numeric,$5,$6,$7)
  `, b.ID, b.DepartmentID, b.Period, b.Amount.String(), b.Currency, b.CreatedBy, b.CreatedAt)
	return querier.MapError("create budget", err, nil, ErrDuplicatePeriod)
}

func (s *Store) GetBudget(ctx context.Context, budgetID string) (Budget, error) {
	b, err := scanBudget(s.DB.QueryRow(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = $1", budgetID))
	if err != nil {
		return Budget{}, querier.MapError("get budget", err, ErrBudgetNotFound, nil)
	}
	return b, nil
}

// ListBudgets applies scope on department_id; budgets have no owner column.
func (s *Store) ListBudgets(ctx context.Context, scope auth.Scope, filter Filter) ([]Budget, error) {
	var args []any
	bind := querier.Dollar(&args)
	where, err := scope.Clause("", "department_id", bind)
	if err != nil {
		return nil, err
	}
	if filter.DepartmentID != "" {
		where += " AND department_id = " + bind(filter.DepartmentID)
	}
	if filter.Period != "" {
		where += " AND period = " + bind(filter.Period)
	}
	rows, err := s.DB.Query(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE "+where+" ORDER BY created_at DESC, id", args...)
	if err != nil {
		return nil, querier.MapError("list budgets", err, nil, nil)
	}
	defer rows.Close()

	out := []Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, querier.MapError("scan budget", err, nil, nil)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list budgets", err, nil, nil)
	}
	return out, nil
}
