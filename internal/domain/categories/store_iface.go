package categories

import "context"

type StoreAPI interface {
	ListCategories(ctx context.Context, filter ListFilter) ([]Category, error)
	GetCategory(ctx context.Context, categoryID string) (Category, error)
	CreateCategory(ctx context.Context, c Category) error
	UpdateCategory(ctx context.Context, c Category) (bool, error)
}
