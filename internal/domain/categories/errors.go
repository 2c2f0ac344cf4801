package categories

import apperrors "expenseflow/internal/errors"

var (
	ErrCategoryNotFound = apperrors.New(apperrors.CodeNotFound, "category not found").With("entity", "category")
	ErrDuplicate        = apperrors.New(apperrors.CodeConflict, "a category with this name already exists").With(apperrors.MetaReason, "duplicate_category")
)

func validation(field, message string) error {
	return apperrors.New(apperrors.CodeValidationFailed, message).With("field", field)
}
