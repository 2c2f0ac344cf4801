package expense

import (
	"context"
	"time"

	"expenseflow/internal/domain/auth"
)

// StoreAPI is the persistence collaborator. Implementations must make
// ConditionalDecide and SubmitClaim atomic and must apply Scope in the query.
type StoreAPI interface {
	CreateClaim(ctx context.Context, claim Claim) error
	GetClaim(ctx context.Context, claimID string) (Claim, error)
	ListClaims(ctx context.Context, scope auth.Scope, filter ListFilter) (ClaimPage, error)
	// UpdateClaim writes the editable fields when the stored status is one of expected.
	UpdateClaim(ctx context.Context, claim Claim, expected ...Status) (bool, error)
	DeleteClaim(ctx context.Context, claimID string, expected ...Status) (bool, error)

	// SubmitClaim moves a DRAFT claim to PENDING and inserts one PENDING record
	// per approver in a single transaction. It returns ErrNotDraft when the
	// claim already left DRAFT.
	SubmitClaim(ctx context.Context, claimID string, approverIDs []string, at time.Time) ([]ApprovalRecord, error)
	CreateApprovalRecords(ctx context.Context, claimID string, approverIDs []string) ([]ApprovalRecord, error)
	GetApprovalRecord(ctx context.Context, recordID string) (ApprovalRecord, error)
	// ConditionalDecide updates the record only while its status equals expected.
	ConditionalDecide(ctx context.Context, recordID string, expected, decision RecordStatus, comments string, at time.Time) (bool, error)
	ListApprovalRecords(ctx context.Context, claimID string) ([]ApprovalRecord, error)
	// ListPendingApprovals filters on the approver column with scope.
	ListPendingApprovals(ctx context.Context, scope auth.Scope) ([]PendingApproval, error)
	// SetClaimStatus replaces the status when the stored status is one of allowedFrom.
	SetClaimStatus(ctx context.Context, claimID string, status Status, allowedFrom ...Status) (bool, error)
}

// Roster answers approver-assignment queries at submission time.
type Roster interface {
	FindActiveUsersByRole(ctx context.Context, role auth.Role) ([]Candidate, error)
}

// ActorLookup resolves another user as an actor, used to vet manual approvers.
type ActorLookup interface {
	Actor(ctx context.Context, userID string) (auth.Actor, error)
}

// CategoryLookup reports whether a category may be put on a claim.
type CategoryLookup interface {
	CategoryActive(ctx context.Context, categoryID string) (bool, error)
}

// Notifier delivers workflow events. Failures are logged by the engine and
// never undo a state change.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]any) error
}

// Recorder observes workflow outcomes for metrics.
type Recorder interface {
	RecordWorkflow(event string)
}
