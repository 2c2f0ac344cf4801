package expense

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expenseflow/internal/domain/auth"
)

// pickApprover returns the lowest-id candidate able to approve claim. A
// candidate that could never decide the claim (its owner, or a manager of
// another department) is not eligible.
func pickApprover(candidates []Candidate, claim Claim) (string, bool) {
	res := auth.Resource{OwnerID: claim.OwnerID, DepartmentID: claim.DepartmentID}
	eligible := make([]string, 0, len(candidates))
	for _, c := range candidates {
		approver := auth.Actor{UserID: c.ID, Role: c.Role, DepartmentID: c.DepartmentID, Active: true}
		if auth.CanApprove(approver, res) {
			eligible = append(eligible, c.ID)
		}
	}
	if len(eligible) == 0 {
		return "", false
	}
	return slices.MinFunc(eligible, cmp.Compare[string]), true
}

// RequiresFinance reports whether amount strictly exceeds threshold.
func RequiresFinance(amount, threshold decimal.Decimal) bool {
	return amount.GreaterThan(threshold)
}

// assignApprovers evaluates the assignment rules once: one MANAGER, plus one
// FINANCE above the threshold. An empty result is a valid outcome.
func (e *Engine) assignApprovers(ctx context.Context, claim Claim) ([]string, error) {
	needFinance := RequiresFinance(claim.Amount, e.threshold)

	var managers, finance []Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		managers, err = e.roster.FindActiveUsersByRole(gctx, auth.RoleManager)
		if err != nil {
			return fmt.Errorf("find managers: %w", err)
		}
		return nil
	})
	if needFinance {
		g.Go(func() error {
			var err error
			finance, err = e.roster.FindActiveUsersByRole(gctx, auth.RoleFinance)
			if err != nil {
				return fmt.Errorf("find finance: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	approvers := make([]string, 0, 2)
	if id, ok := pickApprover(managers, claim); ok {
		approvers = append(approvers, id)
	}
	if needFinance {
		if id, ok := pickApprover(finance, claim); ok && !slices.Contains(approvers, id) {
			approvers = append(approvers, id)
		}
	}
	return approvers, nil
}
