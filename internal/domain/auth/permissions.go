package auth

import (
	"fmt"
	"slices"
	"strings"
)

// Permission is a capability tag. Permissions are derived from a role and never
// stored per user.
type Permission string

const (
	PermViewAllUsers    Permission = "VIEW_ALL_USERS"
	PermCreateUser      Permission = "CREATE_USER"
	PermUpdateUser      Permission = "UPDATE_USER"
	PermDeleteUser      Permission = "DELETE_USER"
	PermUpdateUserRole  Permission = "UPDATE_USER_ROLE"
	PermViewOwnExpenses Permission = "VIEW_OWN_EXPENSES"

	PermViewDepartmentExpenses Permission = "VIEW_DEPARTMENT_EXPENSES"
	PermViewAllExpenses        Permission = "VIEW_ALL_EXPENSES"
	PermCreateExpense          Permission = "CREATE_EXPENSE"
	PermUpdateOwnExpense       Permission = "UPDATE_OWN_EXPENSE"
	PermUpdateAnyExpense       Permission = "UPDATE_ANY_EXPENSE"
	PermDeleteOwnExpense       Permission = "DELETE_OWN_EXPENSE"
	PermDeleteAnyExpense       Permission = "DELETE_ANY_EXPENSE"

	PermApproveDepartmentExpenses Permission = "APPROVE_DEPARTMENT_EXPENSES"
	PermApproveAllExpenses        Permission = "APPROVE_ALL_EXPENSES"
	PermRejectExpenses            Permission = "REJECT_EXPENSES"

	PermViewDepartmentBudget Permission = "VIEW_DEPARTMENT_BUDGET"
	PermViewAllBudgets       Permission = "VIEW_ALL_BUDGETS"
	PermCreateBudget         Permission = "CREATE_BUDGET"
	PermUpdateBudget         Permission = "UPDATE_BUDGET"
	PermDeleteBudget         Permission = "DELETE_BUDGET"

	PermViewDepartments  Permission = "VIEW_DEPARTMENTS"
	PermCreateDepartment Permission = "CREATE_DEPARTMENT"
	PermUpdateDepartment Permission = "UPDATE_DEPARTMENT"
	PermDeleteDepartment Permission = "DELETE_DEPARTMENT"

	PermViewCategories Permission = "VIEW_CATEGORIES"
	PermCreateCategory Permission = "CREATE_CATEGORY"
	PermUpdateCategory Permission = "UPDATE_CATEGORY"
	PermDeleteCategory Permission = "DELETE_CATEGORY"

	PermViewOwnNotifications Permission = "VIEW_OWN_NOTIFICATIONS"
	PermCreateNotification   Permission = "CREATE_NOTIFICATION"
	PermDeleteNotification   Permission = "DELETE_NOTIFICATION"

	PermViewAuditLogs        Permission = "VIEW_AUDIT_LOGS"
	PermGenerateReports      Permission = "GENERATE_REPORTS"
	PermExportData           Permission = "EXPORT_DATA"
	PermManageSystemSettings Permission = "MANAGE_SYSTEM_SETTINGS"
)

// AllPermissions is the full permission enumeration. ADMIN holds every entry.
var AllPermissions = []Permission{
	PermViewAllUsers,
	PermCreateUser,
	PermUpdateUser,
	PermDeleteUser,
	PermUpdateUserRole,
	PermViewOwnExpenses,
	PermViewDepartmentExpenses,
	PermViewAllExpenses,
	PermCreateExpense,
	PermUpdateOwnExpense,
	PermUpdateAnyExpense,
	PermDeleteOwnExpense,
	PermDeleteAnyExpense,
	PermApproveDepartmentExpenses,
	PermApproveAllExpenses,
	PermRejectExpenses,
	PermViewDepartmentBudget,
	PermViewAllBudgets,
	PermCreateBudget,
	PermUpdateBudget,
	PermDeleteBudget,
	PermViewDepartments,
	PermCreateDepartment,
	PermUpdateDepartment,
	PermDeleteDepartment,
	PermViewCategories,
	PermCreateCategory,
	PermUpdateCategory,
	PermDeleteCategory,
	PermViewOwnNotifications,
	PermCreateNotification,
	PermDeleteNotification,
	PermViewAuditLogs,
	PermGenerateReports,
	PermExportData,
	PermManageSystemSettings,
}

// RolePermissions is the explicit, flattened permission list of each role.
// Each list is complete on its own; no role borrows another role's list.
var RolePermissions = map[Role][]Permission{
	RoleEmployee: {
		PermViewOwnExpenses,
		PermCreateExpense,
		PermUpdateOwnExpense,
		PermDeleteOwnExpense,
		PermViewDepartments,
		PermViewCategories,
		PermViewDepartmentBudget,
		PermViewOwnNotifications,
		PermDeleteNotification,
	},
	RoleManager: {
		PermViewOwnExpenses,
		PermCreateExpense,
		PermUpdateOwnExpense,
		PermDeleteOwnExpense,
		PermViewDepartments,
		PermViewCategories,
		PermViewDepartmentBudget,
		PermViewOwnNotifications,
		PermDeleteNotification,
		PermViewDepartmentExpenses,
		PermApproveDepartmentExpenses,
		PermRejectExpenses,
		PermGenerateReports,
	},
	RoleFinance: {
		PermViewAllExpenses,
		PermViewDepartmentExpenses,
		PermViewOwnExpenses,
		PermCreateExpense,
		PermUpdateAnyExpense,
		PermApproveAllExpenses,
		PermApproveDepartmentExpenses,
		PermRejectExpenses,
		PermViewAllBudgets,
		PermViewDepartmentBudget,
		PermCreateBudget,
		PermUpdateBudget,
		PermDeleteBudget,
		PermViewDepartments,
		PermViewCategories,
		PermViewAllUsers,
		PermGenerateReports,
		PermExportData,
		PermViewOwnNotifications,
		PermCreateNotification,
		PermDeleteNotification,
	},
	RoleAdmin: AllPermissions,
}

// catalog is RolePermissions materialized into sets once at startup.
var catalog = buildCatalog(RolePermissions)

func buildCatalog(source map[Role][]Permission) map[Role]map[Permission]struct{} {
	out := make(map[Role]map[Permission]struct{}, len(source))
	for role, perms := range source {
		set := make(map[Permission]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// HasPermission reports whether permission is in the role's set.
func HasPermission(role Role, permission Permission) bool {
	_, ok := catalog[role][permission]
	return ok
}

// HasAny reports whether the role holds at least one of permissions.
func HasAny(role Role, permissions ...Permission) bool {
	for _, perm := range permissions {
		if HasPermission(role, perm) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role holds every one of permissions.
func HasAll(role Role, permissions ...Permission) bool {
	for _, perm := range permissions {
		if !HasPermission(role, perm) {
			return false
		}
	}
	return true
}

// PermissionsFor returns a sorted copy of the role's permissions.
func PermissionsFor(role Role) []Permission {
	set := catalog[role]
	out := make([]Permission, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	slices.Sort(out)
	return out
}

func (p Permission) Valid() bool {
	return slices.Contains(AllPermissions, p)
}

// ParsePermission accepts a permission tag in any case.
func ParsePermission(value string) (Permission, error) {
	perm := Permission(strings.ToUpper(strings.TrimSpace(value)))
	if !perm.Valid() {
		return "", fmt.Errorf("unknown permission %q", value)
	}
	return perm, nil
}
