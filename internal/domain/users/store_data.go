package users

import (
	"context"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/querier"
)

const userColumns = `id, email, name, role, COALESCE(department_id, ''), is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.DepartmentID, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		return User{}, querier.MapError("get user", err, ErrUserNotFound, nil)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, filter ListFilter) (Page, error) {
	var args []any
	bind := querier.Dollar(&args)
	where := "1=1"
	if filter.Role != "" {
		where += " AND role = " + bind(string(filter.Role))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return Page{}, querier.MapError("count users", err, nil, nil)
	}

	rows, err := s.DB.Query(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+
		" ORDER BY email LIMIT "+bind(filter.Limit)+" OFFSET "+bind(filter.Offset), args...)
	if err != nil {
		return Page{}, querier.MapError("list users", err, nil, nil)
	}
	defer rows.Close()

	page := Page{Users: []User{}, Total: total}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return Page{}, querier.MapError("scan user", err, nil, nil)
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return Page{}, querier.MapError("list users", err, nil, nil)
	}
	return page, nil
}

func (s *Store) ActiveByRole(ctx context.Context, role auth.Role) ([]User, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+userColumns+" FROM users WHERE role = $1 AND is_active ORDER BY id", string(role))
	if err != nil {
		return nil, querier.MapError("users by role", err, nil, nil)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, querier.MapError("scan user", err, nil, nil)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("users by role", err, nil, nil)
	}
	return out, nil
}

func (s *Store) UpdateRole(ctx context.Context, userID string, role auth.Role) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET role = $2, updated_at = now() WHERE id = $1", userID, string(role))
	if err != nil {
		return false, querier.MapError("update user role", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetActive(ctx context.Context, userID string, active bool) (bool, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1", userID, active)
	if err != nil {
		return false, querier.MapError("update user status", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}
