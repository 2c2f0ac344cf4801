package auth

import apperrors "expenseflow/internal/errors"

// Actor is the authenticated caller as supplied by the identity collaborator.
// Every authorization call takes one explicitly; there is no ambient default.
type Actor struct {
	UserID       string `json:"userId"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"departmentId,omitempty"`
	Active       bool   `json:"isActive"`
}

// Validate fails with UNAUTHENTICATED when the actor carries no identity or an
// unknown role.
func (a Actor) Validate() error {
	if a.UserID == "" || !a.Role.Valid() {
		return apperrors.ErrUnauthenticated
	}
	return nil
}

// Resource is the ownership context of the target of an action.
type Resource struct {
	OwnerID      string
	DepartmentID string
}
