package budget

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
)

var (
	ErrBudgetNotFound  = apperrors.New(apperrors.CodeNotFound, "budget not found").With("entity", "budget")
	ErrDuplicatePeriod = apperrors.New(apperrors.CodeConflict, "a budget already exists for this department and period").With(apperrors.MetaReason, "duplicate_period")
)

// periodPattern accepts a year ("2025"), a quarter ("2025-Q2") or a month ("2025-04").
var periodPattern = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2]|Q[1-4]))?$`)

type Service struct {
	store  StoreAPI
	logger *zap.Logger
	now    func() time.Time
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the budgets visible to actor: every department for holders of
// VIEW_ALL_BUDGETS, their own department otherwise.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]Budget, error) {
	scope, err := auth.ResolveScopeFor(actor, auth.BudgetViewRule)
	if err != nil {
		return nil, err
	}
	if filter.Period != "" && !periodPattern.MatchString(filter.Period) {
		return nil, validation("period", "period must look like 2025, 2025-Q1 or 2025-01")
	}
	return s.store.ListBudgets(ctx, scope, filter)
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, budgetID string) (Budget, error) {
	scope, err := auth.ResolveScopeFor(actor, auth.BudgetViewRule)
	if err != nil {
		return Budget{}, err
	}
	b, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return Budget{}, err
	}
	if scope.Kind == auth.ScopeAll || (scope.Kind == auth.ScopeDepartment && scope.DepartmentID == b.DepartmentID) {
		return b, nil
	}
	return Budget{}, apperrors.ErrForbidden.With("action", "view")
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Budget, error) {
	if err := auth.Authorize(actor, auth.PermCreateBudget); err != nil {
		return Budget{}, err
	}
	b := Budget{
		ID:           uuid.NewString(),
		DepartmentID: strings.TrimSpace(in.DepartmentID),
		Period:       strings.TrimSpace(in.Period),
		Amount:       in.Amount,
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		CreatedBy:    actor.UserID,
		CreatedAt:    s.now(),
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.DepartmentID == "" {
		return Budget{}, validation("departmentId", "departmentId is required")
	}
	if !periodPattern.MatchString(b.Period) {
		return Budget{}, validation("period", "period must look like 2025, 2025-Q1 or 2025-01")
	}
	if b.Amount.IsNegative() {
		return Budget{}, validation("amount", "amount must not be negative")
	}
	if len(b.Currency) != 3 {
		return Budget{}, validation("currency", "currency must be a three letter code")
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return Budget{}, err
	}
	s.logger.Info("budget created", zap.String("budgetId", b.ID), zap.String("departmentId", b.DepartmentID), zap.String("period", b.Period))
	return b, nil
}

func validation(field, message string) error {
	return apperrors.New(apperrors.CodeValidationFailed, message).With("field", field)
}
