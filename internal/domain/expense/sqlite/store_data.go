package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
)

const claimColumns = `id, owner_id, department_id, category_id, title, description, amount, currency, status, created_at, updated_at, submitted_at`

const recordColumns = `id, expense_id, approver_id, status, comments, decided_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (expense.Claim, error) {
	var c expense.Claim
	var amount, status, createdAt, updatedAt string
	var submittedAt sql.NullString
	if err := row.Scan(&c.ID, &c.OwnerID, &c.DepartmentID, &c.CategoryID, &c.Title, &c.Description, &amount, &c.Currency, &status, &createdAt, &updatedAt, &submittedAt); err != nil {
		return expense.Claim{}, err
	}
	return fillClaim(c, amount, status, createdAt, updatedAt, submittedAt)
}

func fillClaim(c expense.Claim, amount, status, createdAt, updatedAt string, submittedAt sql.NullString) (expense.Claim, error) {
	var err error
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return expense.Claim{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return expense.Claim{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return expense.Claim{}, err
	}
	if c.SubmittedAt, err = parseTimePtr(submittedAt); err != nil {
		return expense.Claim{}, err
	}
	c.Status = expense.Status(status)
	return c, nil
}

func scanRecord(row rowScanner) (expense.ApprovalRecord, error) {
	var r expense.ApprovalRecord
	var status, createdAt string
	var decidedAt sql.NullString
	if err := row.Scan(&r.ID, &r.ExpenseID, &r.ApproverID, &status, &r.Comments, &decidedAt, &createdAt); err != nil {
		return expense.ApprovalRecord{}, err
	}
	return fillRecord(r, status, createdAt, decidedAt)
}

func fillRecord(r expense.ApprovalRecord, status, createdAt string, decidedAt sql.NullString) (expense.ApprovalRecord, error) {
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return expense.ApprovalRecord{}, err
	}
	if r.DecidedAt, err = parseTimePtr(decidedAt); err != nil {
		return expense.ApprovalRecord{}, err
	}
	r.Status = expense.RecordStatus(status)
	return r, nil
}

func (s *Store) CreateClaim(ctx context.Context, claim expense.Claim) error {
	_, err := s.sqlDB.ExecContext(ctx, `
    INSERT INTO expenses (id, owner_id, department_id, category_id, title, description, amount, currency, status, created_at, updated_at, submitted_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
  `, claim.ID, claim.OwnerID, claim.DepartmentID, claim.CategoryID, claim.Title, claim.Description, claim.Amount.String(), claim.Currency,
		string(claim.Status), formatTime(claim.CreatedAt), formatTime(claim.UpdatedAt), formatTimePtr(claim.SubmittedAt))
	return mapError("create expense", err, nil, nil)
}

func (s *Store) GetClaim(ctx context.Context, claimID string) (expense.Claim, error) {
	claim, err := scanClaim(s.sqlDB.QueryRowContext(ctx, "SELECT "+claimColumns+" FROM expenses WHERE id = ?", claimID))
	if err != nil {
		return expense.Claim{}, mapError("get expense", err, expense.ErrClaimNotFound, nil)
	}
	return claim, nil
}

func (s *Store) ListClaims(ctx context.Context, scope auth.Scope, filter expense.ListFilter) (expense.ClaimPage, error) {
	var args []any
	bind := func(value any) string {
		args = append(args, value)
		return "?"
	}
	where, err := scope.Clause("owner_id", "department_id", bind)
	if err != nil {
		return expense.ClaimPage{}, err
	}
	if filter.Status != "" {
		where += " AND status = " + bind(string(filter.Status))
	}
	if filter.CategoryID != "" {
		where += " AND category_id = " + bind(filter.CategoryID)
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(1) FROM expenses WHERE "+where, args...).Scan(&total); err != nil {
		return expense.ClaimPage{}, mapError("count expenses", err, nil, nil)
	}

	query := "SELECT " + claimColumns + " FROM expenses WHERE " + where +
		" ORDER BY created_at DESC, id LIMIT " + bind(filter.Limit) + " OFFSET " + bind(filter.Offset)
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return expense.ClaimPage{}, mapError("list expenses", err, nil, nil)
	}
	defer rows.Close()

	page := expense.ClaimPage{Claims: []expense.Claim{}, Total: total}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return expense.ClaimPage{}, mapError("scan expense", err, nil, nil)
		}
		page.Claims = append(page.Claims, claim)
	}
	if err := rows.Err(); err != nil {
		return expense.ClaimPage{}, mapError("list expenses", err, nil, nil)
	}
	return page, nil
}

func (s *Store) UpdateClaim(ctx context.Context, claim expense.Claim, expected ...expense.Status) (bool, error) {
	args := []any{claim.Title, claim.Description, claim.Amount.String(), claim.Currency, claim.DepartmentID, claim.CategoryID, formatTime(claim.UpdatedAt), claim.ID}
	args = append(args, statusArgs(expected)...)
	res, err := s.sqlDB.ExecContext(ctx, `
    UPDATE expenses
    SET title = ?, description = ?, amount = ?, currency = ?, department_id = ?, category_id = ?, updated_at = ?
    WHERE id = ? AND status IN (`+placeholders(len(expected))+`)
  `, args...)
	return affectedOne("update expense", res, err)
}

func (s *Store) DeleteClaim(ctx context.Context, claimID string, expected ...expense.Status) (bool, error) {
	args := append([]any{claimID}, statusArgs(expected)...)
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND status IN ("+placeholders(len(expected))+")", args...)
	return affectedOne("delete expense", res, err)
}

func affectedOne(op string, res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, mapError(op, err, nil, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError(op, err, nil, nil)
	}
	return n == 1, nil
}

func (s *Store) SubmitClaim(ctx context.Context, claimID string, approverIDs []string, at time.Time) ([]expense.ApprovalRecord, error) {
	var records []expense.ApprovalRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
      UPDATE expenses SET status = ?, submitted_at = ?, updated_at = ?
      WHERE id = ? AND status = ?
    `, string(expense.StatusPending), formatTime(at), formatTime(at), claimID, string(expense.StatusDraft))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var count int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM expenses WHERE id = ?", claimID).Scan(&count); err != nil {
				return err
			}
			if count == 0 {
				return expense.ErrClaimNotFound
			}
			return expense.ErrNotDraft
		}
		records, err = insertRecords(ctx, tx, claimID, approverIDs, at)
		return err
	})
	if err != nil {
		return nil, mapError("submit expense", err, expense.ErrClaimNotFound, expense.ErrAlreadyAssigned)
	}
	return records, nil
}

func (s *Store) CreateApprovalRecords(ctx context.Context, claimID string, approverIDs []string) ([]expense.ApprovalRecord, error) {
	var records []expense.ApprovalRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		records, err = insertRecords(ctx, tx, claimID, approverIDs, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, mapError("create approvals", err, expense.ErrClaimNotFound, expense.ErrAlreadyAssigned)
	}
	return records, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, claimID string, approverIDs []string, at time.Time) ([]expense.ApprovalRecord, error) {
	records := make([]expense.ApprovalRecord, 0, len(approverIDs))
	for _, approverID := range approverIDs {
		rec := expense.ApprovalRecord{
			ID:         uuid.NewString(),
			ExpenseID:  claimID,
			ApproverID: approverID,
			Status:     expense.RecordPending,
			CreatedAt:  at.UTC(),
		}
		if _, err := tx.ExecContext(ctx, `
      INSERT INTO approvals (id, expense_id, approver_id, status, created_at)
      VALUES (?, ?, ?, ?, ?)
    `, rec.ID, rec.ExpenseID, rec.ApproverID, string(rec.Status), formatTime(rec.CreatedAt)); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) GetApprovalRecord(ctx context.Context, recordID string) (expense.ApprovalRecord, error) {
	rec, err := scanRecord(s.sqlDB.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM approvals WHERE id = ?", recordID))
	if err != nil {
		return expense.ApprovalRecord{}, mapError("get approval", err, expense.ErrApprovalNotFound, nil)
	}
	return rec, nil
}

func (s *Store) ConditionalDecide(ctx context.Context, recordID string, expected, decision expense.RecordStatus, comments string, at time.Time) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
    UPDATE approvals SET status = ?, comments = ?, decided_at = ?
    WHERE id = ? AND status = ?
  `, string(decision), comments, formatTime(at), recordID, string(expected))
	return affectedOne("decide approval", res, err)
}

func (s *Store) ListApprovalRecords(ctx context.Context, claimID string) ([]expense.ApprovalRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT "+recordColumns+" FROM approvals WHERE expense_id = ? ORDER BY created_at, id", claimID)
	if err != nil {
		return nil, mapError("list approvals", err, nil, nil)
	}
	defer rows.Close()

	records := []expense.ApprovalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapError("scan approval", err, nil, nil)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list approvals", err, nil, nil)
	}
	return records, nil
}

func (s *Store) ListPendingApprovals(ctx context.Context, scope auth.Scope) ([]expense.PendingApproval, error) {
	args := []any{string(expense.RecordPending)}
	bind := func(value any) string {
		args = append(args, value)
		return "?"
	}
	where, err := scope.Clause("a.approver_id", "e.department_id", bind)
	if err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
    SELECT a.id, a.expense_id, a.approver_id, a.status, a.comments, a.decided_at, a.created_at,
      e.id, e.owner_id, e.department_id, e.category_id, e.title, e.description, e.amount, e.currency, e.status, e.created_at, e.updated_at, e.submitted_at
    FROM approvals a
    JOIN expenses e ON e.id = a.expense_id
    WHERE a.status = ? AND `+where+`
    ORDER BY a.created_at, a.id
  `, args...)
	if err != nil {
		return nil, mapError("list pending approvals", err, nil, nil)
	}
	defer rows.Close()

	out := []expense.PendingApproval{}
	for rows.Next() {
		var rec expense.ApprovalRecord
		var claim expense.Claim
		var recStatus, recCreated, amount, claimStatus, claimCreated, claimUpdated string
		var decidedAt, submittedAt sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.ExpenseID, &rec.ApproverID, &recStatus, &rec.Comments, &decidedAt, &recCreated,
			&claim.ID, &claim.OwnerID, &claim.DepartmentID, &claim.CategoryID, &claim.Title, &claim.Description, &amount, &claim.Currency, &claimStatus, &claimCreated, &claimUpdated, &submittedAt,
		); err != nil {
			return nil, mapError("scan pending approval", err, nil, nil)
		}
		if rec, err = fillRecord(rec, recStatus, recCreated, decidedAt); err != nil {
			return nil, mapError("scan pending approval", err, nil, nil)
		}
		if claim, err = fillClaim(claim, amount, claimStatus, claimCreated, claimUpdated, submittedAt); err != nil {
			return nil, mapError("scan pending approval", err, nil, nil)
		}
		out = append(out, expense.PendingApproval{Record: rec, Claim: claim})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list pending approvals", err, nil, nil)
	}
	return out, nil
}

func (s *Store) SetClaimStatus(ctx context.Context, claimID string, status expense.Status, allowedFrom ...expense.Status) (bool, error) {
	args := []any{string(status), formatTime(time.Now()), claimID}
	args = append(args, statusArgs(allowedFrom)...)
	res, err := s.sqlDB.ExecContext(ctx, `
    UPDATE expenses SET status = ?, updated_at = ?
    WHERE id = ? AND status IN (`+placeholders(len(allowedFrom))+`)
  `, args...)
	return affectedOne("set expense status", res, err)
}
