package expense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/querier"
)

const claimColumns = `id, owner_id, COALESCE(department_id, ''), COALESCE(category_id, ''), title, description, amount::text, currency, status, created_at, updated_at, submitted_at`

const recordColumns = `id, expense_id, approver_id, status, comments, decided_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (Claim, error) {
	var c Claim
	var amount, status string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.DepartmentID, &c.CategoryID, &c.Title, &c.Description, &amount, &c.Currency, &status, &c.CreatedAt, &c.UpdatedAt, &c.SubmittedAt); err != nil {
		return Claim{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Claim{}, err
	}
	c.Amount = parsed
	c.Status = Status(status)
	return c, nil
}

func scanRecord(row rowScanner) (ApprovalRecord, error) {
	var r ApprovalRecord
	var status string
	if err := row.Scan(&r.ID, &r.ExpenseID, &r.ApproverID, &status, &r.Comments, &r.DecidedAt, &r.CreatedAt); err != nil {
		return ApprovalRecord{}, err
	}
	r.Status = RecordStatus(status)
	return r, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) CreateClaim(ctx context.Context, claim Claim) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO expenses (id, owner_id, department_id, category_id, title, description, amount, currency, status, created_at, updated_at, submitted_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10,$11,$12)
  `, claim.ID, claim.OwnerID, nullIfEmpty(claim.DepartmentID), nullIfEmpty(claim.CategoryID), claim.Title, claim.Description, claim.Amount.String(), claim.Currency, string(claim.Status), claim.CreatedAt, claim.UpdatedAt, claim.SubmittedAt)
	return querier.MapError("create expense", err, nil, nil)
}

func (s *Store) GetClaim(ctx context.Context, claimID string) (Claim, error) {
	claim, err := scanClaim(s.DB.QueryRow(ctx, "SELECT "+claimColumns+" FROM expenses WHERE id = $1", claimID))
	if err != nil {
		return Claim{}, querier.MapError("get expense", err, ErrClaimNotFound, nil)
	}
	return claim, nil
}

func (s *Store) ListClaims(ctx context.Context, scope auth.Scope, filter ListFilter) (ClaimPage, error) {
	var args []any
	bind := querier.Dollar(&args)
	where, err := scope.Clause("owner_id", "department_id", bind)
	if err != nil {
		return ClaimPage{}, err
	}
	if filter.Status != "" {
		where += " AND status = " + bind(string(filter.Status))
	}
	if filter.CategoryID != "" {
		where += " AND category_id = " + bind(filter.CategoryID)
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM expenses WHERE "+where, args...).Scan(&total); err != nil {
		return ClaimPage{}, querier.MapError("count expenses", err, nil, nil)
	}

	query := "SELECT " + claimColumns + " FROM expenses WHERE " + where +
		" ORDER BY created_at DESC, id LIMIT " + bind(filter.Limit) + " OFFSET " + bind(filter.Offset)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return ClaimPage{}, querier.MapError("list expenses", err, nil, nil)
	}
	defer rows.Close()

	page := ClaimPage{Claims: []Claim{}, Total: total}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return ClaimPage{}, querier.MapError("scan expense", err, nil, nil)
		}
		page.Claims = append(page.Claims, claim)
	}
	if err := rows.Err(); err != nil {
		return ClaimPage{}, querier.MapError("list expenses", err, nil, nil)
	}
	return page, nil
}

func (s *Store) UpdateClaim(ctx context.Context, claim Claim, expected ...Status) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE expenses
    SET title = $2, description = $3, amount = $4::numeric, currency = $5, department_id = $6, category_id = $7, updated_at = $8
    WHERE id = $1 AND status = ANY($9)
  `, claim.ID, claim.Title, claim.Description, claim.Amount.String(), claim.Currency, nullIfEmpty(claim.DepartmentID), nullIfEmpty(claim.CategoryID), claim.UpdatedAt, statusStrings(expected))
	if err != nil {
		return false, querier.MapError("update expense", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteClaim(ctx context.Context, claimID string, expected ...Status) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM expenses WHERE id = $1 AND status = ANY($2)", claimID, statusStrings(expected))
	if err != nil {
		return false, querier.MapError("delete expense", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SubmitClaim(ctx context.Context, claimID string, approverIDs []string, at time.Time) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
      UPDATE expenses SET status = $2, submitted_at = $3, updated_at = $3
      WHERE id = $1 AND status = $4
    `, claimID, string(StatusPending), at, string(StatusDraft))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1)", claimID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrClaimNotFound
			}
			return ErrNotDraft
		}
		records, err = insertRecords(ctx, tx, claimID, approverIDs, at)
		return err
	})
	if err != nil {
		return nil, querier.MapError("submit expense", err, ErrClaimNotFound, ErrAlreadyAssigned)
	}
	return records, nil
}

func (s *Store) CreateApprovalRecords(ctx context.Context, claimID string, approverIDs []string) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		records, err = insertRecords(ctx, tx, claimID, approverIDs, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, querier.MapError("create approvals", err, ErrClaimNotFound, ErrAlreadyAssigned)
	}
	return records, nil
}

func insertRecords(ctx context.Context, tx pgx.Tx, claimID string, approverIDs []string, at time.Time) ([]ApprovalRecord, error) {
	records := make([]ApprovalRecord, 0, len(approverIDs))
	if len(approverIDs) == 0 {
		return records, nil
	}
	batch := &pgx.Batch{}
	for _, approverID := range approverIDs {
		rec := ApprovalRecord{
			ID:         uuid.NewString(),
			ExpenseID:  claimID,
			ApproverID: approverID,
			Status:     RecordPending,
			CreatedAt:  at,
		}
		batch.Queue(`
      INSERT INTO approvals (id, expense_id, approver_id, status, created_at)
      VALUES ($1,$2,$3,$4,$5)
    `, rec.ID, rec.ExpenseID, rec.ApproverID, string(rec.Status), rec.CreatedAt)
		records = append(records, rec)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetApprovalRecord(ctx context.Context, recordID string) (ApprovalRecord, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, "SELECT "+recordColumns+" FROM approvals WHERE id = $1", recordID))
	if err != nil {
		return ApprovalRecord{}, querier.MapError("get approval", err, ErrApprovalNotFound, nil)
	}
	return rec, nil
}

func (s *Store) ConditionalDecide(ctx context.Context, recordID string, expected, decision RecordStatus, comments string, at time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE approvals SET status = $3, comments = $4, decided_at = $5
    WHERE id = $1 AND status = $2
  `, recordID, string(expected), string(decision), comments, at)
	if err != nil {
		return false, querier.MapError("decide approval", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListApprovalRecords(ctx context.Context, claimID string) ([]ApprovalRecord, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+recordColumns+" FROM approvals WHERE expense_id = $1 ORDER BY created_at, id", claimID)
	if err != nil {
		return nil, querier.MapError("list approvals", err, nil, nil)
	}
	defer rows.Close()

	records := []ApprovalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, querier.MapError("scan approval", err, nil, nil)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list approvals", err, nil, nil)
	}
	return records, nil
}

func (s *Store) ListPendingApprovals(ctx context.Context, scope auth.Scope) ([]PendingApproval, error) {
	args := []any{string(RecordPending)}
	bind := querier.Dollar(&args)
	where, err := scope.Clause("a.approver_id", "e.department_id", bind)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.expense_id, a.approver_id, a.status, a.comments, a.decided_at, a.created_at,
      e.id, e.owner_id, COALESCE(e.department_id, ''), COALESCE(e.category_id, ''), e.title, e.description, e.amount::text, e.currency, e.status, e.created_at, e.updated_at, e.submitted_at
    FROM approvals a
    JOIN expenses e ON e.id = a.expense_id
    WHERE a.status = $1 AND `+where+`
    ORDER BY a.created_at, a.id
  `, args...)
	if err != nil {
		return nil, querier.MapError("list pending approvals", err, nil, nil)
	}
	defer rows.Close()

	out := []PendingApproval{}
	for rows.Next() {
		var p PendingApproval
		var recStatus, amount, claimStatus string
		if err := rows.Scan(
			&p.Record.ID, &p.Record.ExpenseID, &p.Record.ApproverID, &recStatus, &p.Record.Comments, &p.Record.DecidedAt, &p.Record.CreatedAt,
			&p.Claim.ID, &p.Claim.OwnerID, &p.Claim.DepartmentID, &p.Claim.CategoryID, &p.Claim.Title, &p.Claim.Description, &amount, &p.Claim.Currency, &claimStatus, &p.Claim.CreatedAt, &p.Claim.UpdatedAt, &p.Claim.SubmittedAt,
		); err != nil {
			return nil, querier.MapError("scan pending approval", err, nil, nil)
		}
		p.Record.Status = RecordStatus(recStatus)
		p.Claim.Status = Status(claimStatus)
		if p.Claim.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, querier.MapError("parse amount", err, nil, nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list pending approvals", err, nil, nil)
	}
	return out, nil
}

func (s *Store) SetClaimStatus(ctx context.Context, claimID string, status Status, allowedFrom ...Status) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE expenses SET status = $2, updated_at = now()
    WHERE id = $1 AND status = ANY($3)
  `, claimID, string(status), statusStrings(allowedFrom))
	if err != nil {
		return false, querier.MapError("set expense status", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}
