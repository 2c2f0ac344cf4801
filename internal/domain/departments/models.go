package departments

import "time"

// Department is the organisational unit that scopes claim visibility and
// manager approval.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ManagerID   string    `json:"managerId,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input creates a department. ID is optional; a slug such as "sales" keeps
// department ids readable in tokens and logs.
type Input struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ManagerID   string `json:"managerId"`
}

// Patch holds optional updates; nil fields are left unchanged. An empty
// ManagerID clears the manager.
type Patch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ManagerID   *string `json:"managerId"`
}
