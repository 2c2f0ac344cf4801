package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a department allocation for a period. Spending against it is
// not tracked here.
type Budget struct {
	ID           string          `json:"id"`
	DepartmentID string          `json:"departmentId"`
	Period       string          `json:"period"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Input struct {
	DepartmentID string          `json:"departmentId"`
	Period       string          `json:"period"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type Filter struct {
	DepartmentID string
	Period       string
}
