package categories

import (
	"context"

	"expenseflow/internal/platform/querier"
)

const categoryColumns = `id, name, description, icon, color, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, filter ListFilter) ([]Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	if !filter.IncludeInactive {
		query += " WHERE is_active"
	}
	query += " ORDER BY name, id"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, querier.MapError("list categories", err, nil, nil)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, querier.MapError("scan category", err, nil, nil)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list categories", err, nil, nil)
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	c, err := scanCategory(s.DB.QueryRow(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = $1", categoryID))
	if err != nil {
		return Category{}, querier.MapError("get category", err, ErrCategoryNotFound, nil)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c Category) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO categories (id, name, description, icon, color, is_active, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, c.ID, c.Name, c.Description, c.Icon, c.Color, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return querier.MapError("create category", err, nil, ErrDuplicate)
}

func (s *Store) UpdateCategory(ctx context.Context, c Category) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE categories SET name = $2, description = $3, icon = $4, color = $5, is_active = $6, updated_at = $7
    WHERE id = $1
  `, c.ID, c.Name, c.Description, c.Icon, c.Color, c.IsActive, c.UpdatedAt)
	if err != nil {
		return false, querier.MapError("update category", err, nil, ErrDuplicate)
	}
	return tag.RowsAffected() == 1, nil
}
