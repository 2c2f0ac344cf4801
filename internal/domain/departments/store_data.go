package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"expenseflow/internal/platform/querier"
)

const foreignKeyViolation = "23503"

const departmentColumns = `d.id, d.name, d.description, COALESCE(d.manager_id, ''), d.created_at, d.updated_at,
  (SELECT COUNT(1) FROM users u WHERE u.department_id = d.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt, &d.MemberCount); err != nil {
		return Department{}, err
	}
	return d, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+departmentColumns+" FROM departments d ORDER BY d.name, d.id")
	if err != nil {
		return nil, querier.MapError("list departments", err, nil, nil)
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, querier.MapError("scan department", err, nil, nil)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list departments", err, nil, nil)
	}
	return out, nil
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (Department, error) {
	d, err := scanDepartment(s.DB.QueryRow(ctx, "SELECT "+departmentColumns+" FROM departments d WHERE d.id = $1", departmentID))
	if err != nil {
		return Department{}, querier.MapError("get department", err, ErrDepartmentNotFound, nil)
	}
	return d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d Department) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO departments (id, name, description, manager_id, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, d.ID, d.Name, d.Description, nullIfEmpty(d.ManagerID), d.CreatedAt, d.UpdatedAt)
	return querier.MapError("create department", err, nil, ErrDuplicate)
}

func (s *Store) UpdateDepartment(ctx context.Context, d Department) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE departments SET name = $2, description = $3, manager_id = $4, updated_at = $5
    WHERE id = $1
  `, d.ID, d.Name, d.Description, nullIfEmpty(d.ManagerID), d.UpdatedAt)
	if err != nil {
		return false, querier.MapError("update department", err, nil, ErrDuplicate)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteDepartment checks expenses explicitly: their department column is
// not a foreign key, so the database alone would let them dangle.
func (s *Store) DeleteDepartment(ctx context.Context, departmentID string) error {
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var inUse bool
		if err := tx.QueryRow(ctx, `
      SELECT EXISTS (SELECT 1 FROM users WHERE department_id = $1)
        OR EXISTS (SELECT 1 FROM budgets WHERE department_id = $1)
        OR EXISTS (SELECT 1 FROM expenses WHERE department_id = $1)
    `, departmentID).Scan(&inUse); err != nil {
			return err
		}
		if inUse {
			return ErrInUse
		}
		tag, err := tx.Exec(ctx, "DELETE FROM departments WHERE id = $1", departmentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrDepartmentNotFound
		}
		return nil
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrInUse
	}
	return querier.MapError("delete department", err, ErrDepartmentNotFound, nil)
}
