package expense

import "github.com/shopspring/decimal"

// Notification kinds emitted by the workflow.
const (
	KindApprovalRequested = "APPROVAL"
	KindExpenseSubmitted  = "EXPENSE"
	KindExpenseApproved   = "EXPENSE_APPROVED"
	KindExpenseRejected   = "EXPENSE_REJECTED"
	KindExpensePaid       = "EXPENSE_PAID"
)

const (
	DefaultCurrency  = "USD"
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxTitleLength   = 200
)

// DefaultThreshold is the amount above which a FINANCE approver is added.
var DefaultThreshold = decimal.NewFromInt(1000)
