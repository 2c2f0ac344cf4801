package auth

import (
	"fmt"
	"strings"
)

// Role is one of the four fixed user roles.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleFinance  Role = "FINANCE"
	RoleAdmin    Role = "ADMIN"
)

// AllRoles lists every role, lowest privilege first.
var AllRoles = []Role{RoleEmployee, RoleManager, RoleFinance, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleFinance, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any case.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}
