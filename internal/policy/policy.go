// Package policy decides what a tenant member may do.
package policy

import (
	"github.com/dimitrije/agency-api/internal/models"
)

type Action string

const (
	ManageUsers       Action = "manage_users"
	ManageProjects    Action = "manage_projects"
	ApproveTimesheets Action = "approve_timesheets"
	ManageBilling     Action = "manage_billing"
	ManagePayroll     Action = "manage_payroll"
	ViewAllProjects   Action = "view_all_projects"
	DeleteTenant      Action = "delete_tenant"
)

var adminActions = []Action{
	ManageUsers, ManageProjects, ApproveTimesheets,
	ManageBilling, ManagePayroll, ViewAllProjects,
}

var matrix = map[string]map[Action]bool{
	models.RoleOwner:  set(append(adminActions, DeleteTenant)...),
	models.RoleAdmin:  set(adminActions...),
	models.RoleMember: {},
}

func set(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// Allow reports whether the membership grants action. A nil membership grants nothing.
func Allow(m *models.TenantUser, action Action) bool {
	if m == nil {
		return false
	}
	return matrix[m.Role][action]
}

func IsAdmin(m *models.TenantUser) bool {
	return m != nil && (m.Role == models.RoleOwner || m.Role == models.RoleAdmin)
}

// CanViewTimesheet allows the owner and approvers.
func CanViewTimesheet(m *models.TenantUser, ts *models.Timesheet) bool {
	if m == nil || ts == nil || m.TenantID != ts.TenantID {
		return false
	}
	return ts.UserID == m.UserID || Allow(m, ApproveTimesheets)
}

// CanEditTimesheet allows only the owner, and only while the timesheet is a draft.
func CanEditTimesheet(m *models.TenantUser, ts *models.Timesheet) bool {
	if m == nil || ts == nil || m.TenantID != ts.TenantID {
		return false
	}
	return ts.UserID == m.UserID && ts.IsEditable()
}

// CanEditTimeEntry allows the entry's author, or an admin acting on another
// member's entry. Neither may touch entries locked in a non-draft timesheet;
// that check needs the timesheet and happens in the service.
func CanEditTimeEntry(m *models.TenantUser, e *models.TimeEntry) bool {
	if m == nil || e == nil || m.TenantID != e.TenantID {
		return false
	}
	return e.UserID == m.UserID || IsAdmin(m)
}
