package expense

import "expenseflow/internal/platform/querier"

// Store is the Postgres implementation of StoreAPI.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)
