// Package reports renders exports of approval workflow data.
package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
)

// ClaimSource loads a claim and its approval records on behalf of an actor.
type ClaimSource interface {
	Get(ctx context.Context, actor auth.Actor, claimID string) (expense.Claim, error)
	Approvals(ctx context.Context, actor auth.Actor, claimID string) ([]expense.ApprovalRecord, error)
}

type Service struct {
	claims ClaimSource
}

func NewService(claims ClaimSource) *Service {
	return &Service{claims: claims}
}

// ApprovalTrail writes a PDF summary of a claim and every approver decision.
// The actor needs EXPORT_DATA and must be able to view the claim.
func (s *Service) ApprovalTrail(ctx context.Context, actor auth.Actor, claimID string, w io.Writer) error {
	if err := auth.Authorize(actor, auth.PermExportData); err != nil {
		return err
	}
	claim, err := s.claims.Get(ctx, actor, claimID)
	if err != nil {
		return err
	}
	records, err := s.claims.Approvals(ctx, actor, claimID)
	if err != nil {
		return err
	}
	return renderTrail(w, claim, records)
}

func renderTrail(w io.Writer, claim expense.Claim, records []expense.ApprovalRecord) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Expense approval trail", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Expense approval trail")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(format string, args ...any) {
		pdf.Cell(0, 7, fmt.Sprintf(format, args...))
		pdf.Ln(6)
	}
	line("Expense: %s", claim.Title)
	line("Reference: %s", claim.ID)
	line("Owner: %s", claim.OwnerID)
	if claim.DepartmentID != "" {
		line("Department: %s", claim.DepartmentID)
	}
	line("Amount: %s %s", claim.Amount.StringFixed(2), claim.Currency)
	line("Status: %s", claim.Status)
	if claim.SubmittedAt != nil {
		line("Submitted: %s", formatTime(*claim.SubmittedAt))
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	widths := []float64{45, 28, 42, 75}
	for i, header := range []string{"Approver", "Decision", "Decided at", "Comments"} {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	if len(records) == 0 {
		pdf.CellFormat(190, 8, "No approvers assigned", "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	for _, rec := range records {
		decided := "-"
		if rec.DecidedAt != nil {
			decided = formatTime(*rec.DecidedAt)
		}
		row := []string{rec.ApproverID, string(rec.Status), decided, truncate(rec.Comments, 48)}
		for i, value := range row {
			pdf.CellFormat(widths[i], 8, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render approval trail: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
