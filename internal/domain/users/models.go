package users

import (
	"time"

	"expenseflow/internal/domain/auth"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         auth.Role `json:"role"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor is the authorization view of u.
func (u User) Actor() auth.Actor {
	return auth.Actor{UserID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID, Active: u.Active}
}

type ListFilter struct {
	Role   auth.Role
	Limit  int
	Offset int
}

type Page struct {
	Users []User `json:"items"`
	Total int    `json:"total"`
}
