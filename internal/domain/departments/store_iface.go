package departments

import "context"

type StoreAPI interface {
	// ListDepartments returns every department ordered by name.
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, departmentID string) (Department, error)
	CreateDepartment(ctx context.Context, d Department) error
	UpdateDepartment(ctx context.Context, d Department) (bool, error)
	// DeleteDepartment returns ErrInUse while users, budgets or expenses
	// still reference the department.
	DeleteDepartment(ctx context.Context, departmentID string) error
}
