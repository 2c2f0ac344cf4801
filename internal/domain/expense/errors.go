package expense

import apperrors "expenseflow/internal/errors"

func coded(code apperrors.Code, reason, message string) *apperrors.Error {
	return apperrors.New(code, message).With(apperrors.MetaReason, reason)
}

var (
	ErrClaimNotFound    = apperrors.New(apperrors.CodeNotFound, "expense not found").With("entity", "expense")
	ErrApprovalNotFound = apperrors.New(apperrors.CodeNotFound, "approval not found").With("entity", "approval")

	ErrAlreadyDecided  = coded(apperrors.CodeConflict, "already_decided", "this approval has already been processed")
	ErrNotDraft        = coded(apperrors.CodeConflict, "not_draft", "expense has already been submitted")
	ErrNotEditable     = coded(apperrors.CodeConflict, "not_editable", "expense can no longer be changed")
	ErrNotPending      = coded(apperrors.CodeConflict, "not_pending", "expense is not awaiting approval")
	ErrNotApproved     = coded(apperrors.CodeConflict, "not_approved", "expense is not approved")
	ErrAlreadyAssigned = coded(apperrors.CodeConflict, "already_assigned", "approver is already assigned")
	ErrPaidNotDeleted  = coded(apperrors.CodeConflict, "paid", "paid expenses cannot be deleted")

	ErrNotYourApproval    = coded(apperrors.CodeForbidden, "not_approver", "you are not authorized to approve this expense")
	ErrAdminOverride      = coded(apperrors.CodeForbidden, "admin_override_required", "only an administrator can delete an approved expense")
	ErrIneligibleApprover = coded(apperrors.CodeValidationFailed, "ineligible_approver", "user cannot approve this expense")

	ErrUnknownCategory = coded(apperrors.CodeValidationFailed, "unknown_category", "category does not exist or is inactive").With("field", "categoryId")

	ErrCommentsRequired = apperrors.New(apperrors.CodeValidationFailed, "comments are required when rejecting").With("field", "comments")
	ErrInvalidDecision  = apperrors.New(apperrors.CodeValidationFailed, "decision must be APPROVED or REJECTED").With("field", "status")
)

func validation(field, message string) error {
	return apperrors.New(apperrors.CodeValidationFailed, message).With("field", field)
}

var ErrRoutingLocked = coded(apperrors.CodeConflict, "routing_locked", "amount, currency and department are fixed once submitted")
