package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"expenseflow/internal/domain/auth"
)

// Status is the lifecycle state of a claim.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPaid     Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaid
}

// RecordStatus is the state of a single approver's decision.
type RecordStatus string

const (
	RecordPending  RecordStatus = "PENDING"
	RecordApproved RecordStatus = "APPROVED"
	RecordRejected RecordStatus = "REJECTED"
)

// Decision is what an approver may set their record to.
type Decision = RecordStatus

func (s RecordStatus) IsDecision() bool {
	return s == RecordApproved || s == RecordRejected
}

type Claim struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	DepartmentID string          `json:"departmentId,omitempty"`
	CategoryID   string          `json:"categoryId,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	SubmittedAt  *time.Time      `json:"submittedAt,omitempty"`
}

type ApprovalRecord struct {
	ID         string       `json:"id"`
	ExpenseID  string       `json:"expenseId"`
	ApproverID string       `json:"approverId"`
	Status     RecordStatus `json:"status"`
	Comments   string       `json:"comments,omitempty"`
	DecidedAt  *time.Time   `json:"decidedAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// PendingApproval is an outstanding record joined with its claim.
type PendingApproval struct {
	Record ApprovalRecord `json:"approval"`
	Claim  Claim          `json:"expense"`
}

// ClaimInput carries the caller-editable fields of a claim.
type ClaimInput struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DepartmentID   string          `json:"departmentId"`
	CategoryID     string          `json:"categoryId"`
	SubmitOnCreate bool            `json:"submit"`
}

// ClaimPatch holds optional updates; nil fields are left unchanged.
type ClaimPatch struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Amount       *decimal.Decimal `json:"amount"`
	Currency     *string          `json:"currency"`
	DepartmentID *string          `json:"departmentId"`
	CategoryID   *string          `json:"categoryId"`
}

type ListFilter struct {
	Status     Status
	CategoryID string
	Limit      int
	Offset     int
}

type ClaimPage struct {
	Claims []Claim `json:"items"`
	Total  int     `json:"total"`
}

// Candidate is a roster entry eligible for approver assignment.
type Candidate struct {
	ID           string
	Role         auth.Role
	DepartmentID string
}

type SubmitResult struct {
	Claim      Claim            `json:"expense"`
	Approvals  []ApprovalRecord `json:"approvals"`
	Unassigned bool             `json:"unassigned"`
}

type DecideResult struct {
	Record      ApprovalRecord `json:"approval"`
	ClaimStatus Status         `json:"expenseStatus"`
	Finalized   bool           `json:"finalized"`
}
