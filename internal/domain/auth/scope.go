package auth

import (
	"fmt"

	apperrors "expenseflow/internal/errors"
)

type ScopeKind string

const (
	ScopeAll        ScopeKind = "ALL"
	ScopeDepartment ScopeKind = "DEPARTMENT"
	ScopeOwner      ScopeKind = "OWNER"
)

// Scope is the data filter every list query must carry.
type Scope struct {
	Kind         ScopeKind `json:"kind"`
	DepartmentID string    `json:"departmentId,omitempty"`
	OwnerID      string    `json:"ownerId,omitempty"`
}

func AllScope() Scope {
	return Scope{Kind: ScopeAll}
}

func DepartmentScope(departmentID string) Scope {
	return Scope{Kind: ScopeDepartment, DepartmentID: departmentID}
}

func OwnerScope(ownerID string) Scope {
	return Scope{Kind: ScopeOwner, OwnerID: ownerID}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeDepartment:
		return "DEPARTMENT:" + s.DepartmentID
	case ScopeOwner:
		return "OWNER:" + s.OwnerID
	}
	return string(s.Kind)
}

// ScopeRule names the all/department/own permission triple of one resource
// type. An empty permission means the tier does not exist for that resource.
type ScopeRule struct {
	All        Permission
	Department Permission
	Own        Permission
}

var (
	ExpenseViewRule    = ScopeRule{All: PermViewAllExpenses, Department: PermViewDepartmentExpenses, Own: PermViewOwnExpenses}
	ExpenseEditRule    = ScopeRule{All: PermUpdateAnyExpense, Own: PermUpdateOwnExpense}
	ExpenseApproveRule = ScopeRule{All: PermApproveAllExpenses, Department: PermApproveDepartmentExpenses}
	ExpenseDeleteRule  = ScopeRule{All: PermDeleteAnyExpense, Own: PermDeleteOwnExpense}
	BudgetViewRule     = ScopeRule{All: PermViewAllBudgets, Department: PermViewDepartmentBudget}
)

func (r ScopeRule) holdsAll(role Role) bool {
	return r.All != "" && HasPermission(role, r.All)
}

func (r ScopeRule) holdsDepartment(role Role) bool {
	return r.Department != "" && HasPermission(role, r.Department)
}

func (r ScopeRule) holdsOwn(role Role) bool {
	return r.Own != "" && HasPermission(role, r.Own)
}

// ResolveScope derives the expense listing scope of actor.
func ResolveScope(actor Actor) (Scope, error) {
	return ResolveScopeFor(actor, ExpenseViewRule)
}

// ResolveScopeFor maps actor onto ALL, DEPARTMENT or OWNER using rule. A
// department scope without a department fails closed.
func ResolveScopeFor(actor Actor, rule ScopeRule) (Scope, error) {
	if err := actor.Validate(); err != nil {
		return Scope{}, err
	}
	if !actor.Active {
		return Scope{}, errInactive
	}
	switch {
	case rule.holdsAll(actor.Role):
		return AllScope(), nil
	case rule.holdsDepartment(actor.Role):
		if actor.DepartmentID == "" {
			return Scope{}, apperrors.ErrForbidden.With(apperrors.MetaReason, "missing_department")
		}
		return DepartmentScope(actor.DepartmentID), nil
	default:
		return OwnerScope(actor.UserID), nil
	}
}

// ArgFunc appends a bind value and returns its placeholder text.
type ArgFunc func(value any) string

// Clause renders the scope as a SQL predicate over the given columns. An empty
// column for the scope's kind yields a predicate that matches nothing.
func (s Scope) Clause(ownerCol, deptCol string, arg ArgFunc) (string, error) {
	switch s.Kind {
	case ScopeAll:
		return "1=1", nil
	case ScopeDepartment:
		if deptCol == "" || s.DepartmentID == "" {
			return "1=0", nil
		}
		return deptCol + " = " + arg(s.DepartmentID), nil
	case ScopeOwner:
		if ownerCol == "" || s.OwnerID == "" {
			return "1=0", nil
		}
		return ownerCol + " = " + arg(s.OwnerID), nil
	}
	return "", apperrors.ErrForbidden.WithCause(fmt.Errorf("unknown scope kind %q", s.Kind))
}
