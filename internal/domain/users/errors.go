package users

import apperrors "expenseflow/internal/errors"

var (
	ErrUserNotFound = apperrors.New(apperrors.CodeNotFound, "user not found").With("entity", "user")
	ErrSelfChange   = apperrors.New(apperrors.CodeForbidden, "you cannot change your own role or status").With(apperrors.MetaReason, "self_change")
	ErrInvalidRole  = apperrors.New(apperrors.CodeValidationFailed, "unknown role").With("field", "role")
)
