package departments

import apperrors "expenseflow/internal/errors"

var (
	ErrDepartmentNotFound = apperrors.New(apperrors.CodeNotFound, "department not found").With("entity", "department")
	ErrDuplicate          = apperrors.New(apperrors.CodeConflict, "a department with this id or name already exists").With(apperrors.MetaReason, "duplicate_department")
	ErrInUse              = apperrors.New(apperrors.CodeConflict, "department still has members, budgets or expenses").With(apperrors.MetaReason, "department_in_use")
	ErrInvalidManager     = apperrors.New(apperrors.CodeValidationFailed, "manager must be an active user who can approve department expenses").With("field", "managerId")
)

func validation(field, message string) error {
	return apperrors.New(apperrors.CodeValidationFailed, message).With("field", field)
}
