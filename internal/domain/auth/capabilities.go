package auth

// Capabilities summarizes what a client should offer the actor.
type Capabilities struct {
	ShowApprovals    bool      `json:"showApprovals"`
	ShowBudgets      bool      `json:"showBudgets"`
	ShowUsers        bool      `json:"showUsers"`
	ShowReports      bool      `json:"showReports"`
	ShowAuditLogs    bool      `json:"showAuditLogs"`
	CanCreateExpense bool      `json:"canCreateExpense"`
	CanApprove       bool      `json:"canApprove"`
	CanManageBudgets bool      `json:"canManageBudgets"`
	CanManageUsers   bool      `json:"canManageUsers"`
	CanExportData    bool      `json:"canExportData"`
	CanManageSystem  bool      `json:"canManageSystem"`
	ViewScope        ScopeKind `json:"viewScope"`
}

func CapabilitiesFor(role Role) Capabilities {
	approve := HasAny(role, PermApproveDepartmentExpenses, PermApproveAllExpenses)
	scope := ScopeOwner
	switch {
	case HasPermission(role, PermViewAllExpenses):
		scope = ScopeAll
	case HasPermission(role, PermViewDepartmentExpenses):
		scope = ScopeDepartment
	}
	return Capabilities{
		ShowApprovals:    approve,
		ShowBudgets:      HasAny(role, PermViewDepartmentBudget, PermViewAllBudgets),
		ShowUsers:        HasPermission(role, PermViewAllUsers),
		ShowReports:      HasPermission(role, PermGenerateReports),
		ShowAuditLogs:    HasPermission(role, PermViewAuditLogs),
		CanCreateExpense: HasPermission(role, PermCreateExpense),
		CanApprove:       approve,
		CanManageBudgets: HasAny(role, PermCreateBudget, PermUpdateBudget, PermDeleteBudget),
		CanManageUsers:   HasAny(role, PermCreateUser, PermUpdateUser, PermDeleteUser, PermUpdateUserRole),
		CanExportData:    HasPermission(role, PermExportData),
		CanManageSystem:  HasPermission(role, PermManageSystemSettings),
		ViewScope:        scope,
	}
}
