package expense

import "expenseflow/internal/domain/auth"

// EditPolicy decides which lifecycle states accept edits.
type EditPolicy struct {
	// AllowPendingEdits lets the owner edit a PENDING claim while no approver
	// has decided yet.
	AllowPendingEdits bool
	// PrivilegedPendingEdits lets holders of UPDATE_ANY_EXPENSE edit PENDING
	// claims they do not own.
	PrivilegedPendingEdits bool
}

func DefaultEditPolicy() EditPolicy {
	return EditPolicy{AllowPendingEdits: true}
}

// Editable reports whether actor may change claim in its current state.
// records is the claim's approval set and is only consulted for PENDING claims.
func (p EditPolicy) Editable(actor auth.Actor, claim Claim, records []ApprovalRecord) bool {
	switch claim.Status {
	case StatusDraft:
		return true
	case StatusPending:
		if actor.UserID == claim.OwnerID {
			return p.AllowPendingEdits && !anyDecided(records)
		}
		return p.PrivilegedPendingEdits && auth.HasPermission(actor.Role, auth.PermUpdateAnyExpense)
	}
	return false
}

func anyDecided(records []ApprovalRecord) bool {
	for _, rec := range records {
		if rec.Status != RecordPending {
			return true
		}
	}
	return false
}

// touchesRouting reports whether patch changes a field that approver
// assignment depended on. Such changes are only accepted on drafts.
func (p ClaimPatch) touchesRouting(claim Claim) bool {
	if p.Amount != nil && !p.Amount.Equal(claim.Amount) {
		return true
	}
	if p.Currency != nil && normalizeCurrency(*p.Currency) != claim.Currency {
		return true
	}
	return p.DepartmentID != nil && *p.DepartmentID != claim.DepartmentID
}
