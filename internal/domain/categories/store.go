package categories

import "expenseflow/internal/platform/querier"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)
