package auth

import apperrors "expenseflow/internal/errors"

var errInactive = apperrors.ErrForbidden.With(apperrors.MetaReason, "inactive_user")

func usable(actor Actor) bool {
	return actor.Validate() == nil && actor.Active
}

// Can is the coarse capability gate used before any resource is loaded.
func Can(actor Actor, permission Permission) bool {
	return usable(actor) && HasPermission(actor.Role, permission)
}

// CanView resolves view-all, then view-department, then view-own.
func CanView(actor Actor, res Resource) bool {
	return evaluate(actor, res, ExpenseViewRule)
}

// CanEdit says nothing about the claim's lifecycle state.
func CanEdit(actor Actor, res Resource) bool {
	return evaluate(actor, res, ExpenseEditRule)
}

// CanApprove denies self-approval for every role before any permission lookup.
func CanApprove(actor Actor, res Resource) bool {
	if isSelf(actor, res) {
		return false
	}
	return evaluate(actor, res, ExpenseApproveRule)
}

func CanDelete(actor Actor, res Resource) bool {
	return evaluate(actor, res, ExpenseDeleteRule)
}

func isSelf(actor Actor, res Resource) bool {
	return actor.UserID != "" && actor.UserID == res.OwnerID
}

func evaluate(actor Actor, res Resource, rule ScopeRule) bool {
	if !usable(actor) {
		return false
	}
	if rule.holdsAll(actor.Role) {
		return true
	}
	if rule.holdsDepartment(actor.Role) {
		return actor.DepartmentID != "" && res.DepartmentID != "" && actor.DepartmentID == res.DepartmentID
	}
	if rule.holdsOwn(actor.Role) {
		return res.OwnerID != "" && actor.UserID == res.OwnerID
	}
	return false
}

// Authorize fails with UNAUTHENTICATED or FORBIDDEN.
func Authorize(actor Actor, permission Permission) error {
	if err := Require(actor); err != nil {
		return err
	}
	if !HasPermission(actor.Role, permission) {
		return apperrors.ErrForbidden.With("permission", string(permission))
	}
	return nil
}

func AuthorizeView(actor Actor, res Resource) error {
	return authorizeWith(actor, CanView(actor, res), "view")
}

func AuthorizeEdit(actor Actor, res Resource) error {
	return authorizeWith(actor, CanEdit(actor, res), "edit")
}

func AuthorizeDelete(actor Actor, res Resource) error {
	return authorizeWith(actor, CanDelete(actor, res), "delete")
}

// AuthorizeApprove distinguishes self-approval from an ordinary denial.
func AuthorizeApprove(actor Actor, res Resource) error {
	if err := Require(actor); err != nil {
		return err
	}
	if isSelf(actor, res) {
		return apperrors.ErrSelfApprovalForbidden
	}
	return authorizeWith(actor, CanApprove(actor, res), "approve")
}

// Require fails with UNAUTHENTICATED for a missing actor and FORBIDDEN for an
// inactive one.
func Require(actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.Active {
		return errInactive
	}
	return nil
}

func authorizeWith(actor Actor, allowed bool, action string) error {
	if err := Require(actor); err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden.With("action", action)
	}
	return nil
}
