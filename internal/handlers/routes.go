package handlers

import (
	"context"

	appmw "github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/policy"
	"github.com/m1z23r/drift/pkg/drift"
)

// Routes holds every handler mounted under /api/v1. Electric is optional.
type Routes struct {
	Health       drift.HandlerFunc
	Auth         *AuthHandler
	User         *UserHandler
	Tenant       *TenantHandler
	Invitation   *InvitationHandler
	Project      *ProjectHandler
	Task         *TaskHandler
	TimeEntry    *TimeEntryHandler
	Timesheet    *TimesheetHandler
	Invoice      *InvoiceHandler
	Payroll      *PayrollHandler
	Notification *NotificationHandler
	SSE          *SSEHandler
	Electric     *ElectricHandler
}

// Guards are the middleware the route table composes. Authenticate sets the
// caller, SelectTenant loads the tenant membership and Throttle limits the
// public invitation token endpoints.
type Guards struct {
	Authenticate drift.HandlerFunc
	SelectTenant drift.HandlerFunc
	Throttle     drift.HandlerFunc
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(db Pinger) drift.HandlerFunc {
	return func(c *drift.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			_ = c.JSON(503, map[string]string{"status": "unavailable"})
			return
		}
		_ = c.JSON(200, map[string]string{"status": "ok"})
	}
}

// Register mounts the API on api.
//
// drift keeps one radix tree per method, and a segment cannot hold a static
// child next to a wildcard one. Token based invitation routes live under
// /invitation-tokens, member management under /members, invoice generation
// is POST /invoices and marking a single notification read is a PATCH.
func Register(api *drift.RouterGroup, r Routes, g Guards) {
	api.Get("/health", r.Health)

	auth := api.Group("/auth")
	auth.Get("/:provider/consent", r.Auth.GetConsentURL)
	auth.Get("/:provider/callback", r.Auth.Callback)
	auth.Post("/exchange", r.Auth.ExchangeCode)
	auth.Post("/refresh", r.Auth.RefreshToken)
	auth.Post("/logout", r.Auth.Logout)

	tokens := api.Group("/invitation-tokens")
	tokens.Use(g.Throttle)
	tokens.Get("/:token", r.Invitation.Preview)
	tokens.Post("/:token/accept", g.Authenticate, r.Invitation.AcceptByToken)

	// Signed-in routes that need no tenant.
	protected := api.Group("")
	protected.Use(g.Authenticate)

	protected.Post("/auth/logout-all", r.Auth.LogoutAll)

	protected.Get("/users/me", r.User.GetMe)
	protected.Patch("/users/me", r.User.UpdateMe)

	protected.Get("/tenants", r.Tenant.List)
	protected.Post("/tenants", r.Tenant.Create)
	protected.Get("/tenants/:id", r.Tenant.Get)

	protected.Get("/invitations/mine", r.Invitation.ListMine)
	protected.Post("/invitations/:id/accept", r.Invitation.Accept)
	protected.Post("/invitations/:id/reject", r.Invitation.Reject)

	tenant := api.Group("")
	tenant.Use(g.Authenticate, g.SelectTenant)

	tenant.Get("/roles", r.Tenant.ListRoles)
	tenant.Get("/members", r.Tenant.ListMembers)
	tenant.Delete("/tenants/:id", appmw.Require(policy.DeleteTenant), r.Tenant.Delete)

	members := tenant.Group("/members")
	members.Use(appmw.Require(policy.ManageUsers))
	members.Patch("/:userId/role", r.Tenant.UpdateMember)
	members.Delete("/:userId", r.Tenant.RemoveMember)

	invitations := tenant.Group("/invitations")
	invitations.Use(appmw.Require(policy.ManageUsers))
	invitations.Post("", r.Invitation.Create)
	invitations.Get("", r.Invitation.List)
	invitations.Post("/:id/cancel", r.Invitation.Cancel)
	invitations.Post("/:id/resend", r.Invitation.Resend)

	tenant.Get("/projects", r.Project.List)
	tenant.Get("/projects/:id", r.Project.Get)
	tenant.Get("/projects/:id/members", r.Project.ListMembers)
	tenant.Get("/projects/:id/tasks", r.Task.List)
	tenant.Post("/projects/:id/tasks", r.Task.Create)

	projects := tenant.Group("/projects")
	projects.Use(appmw.Require(policy.ManageProjects))
	projects.Post("", r.Project.Create)
	projects.Patch("/:id", r.Project.Update)
	projects.Delete("/:id", r.Project.Delete)
	projects.Delete("/:id/members/:userId", r.Project.RemoveMember)

	tenant.Get("/tasks/:taskId", r.Task.Get)
	tenant.Patch("/tasks/:taskId", r.Task.Update)
	tenant.Delete("/tasks/:taskId", r.Task.Delete)
	tenant.Post("/tasks/:taskId/time-entries/start", r.TimeEntry.Start)
	tenant.Post("/tasks/:taskId/time-entries/stop", r.TimeEntry.Stop)

	tenant.Get("/time-entries", r.TimeEntry.List)
	tenant.Post("/time-entries", r.TimeEntry.Create)
	tenant.Patch("/time-entries/:id", r.TimeEntry.Update)
	tenant.Delete("/time-entries/:id", r.TimeEntry.Delete)

	tenant.Post("/timesheets", r.Timesheet.Create)
	tenant.Get("/timesheets", r.Timesheet.List)
	tenant.Get("/timesheets/:id", r.Timesheet.Get)
	tenant.Post("/timesheets/:id/entries", r.Timesheet.LinkEntries)
	tenant.Delete("/timesheets/:id/entries/:entryId", r.Timesheet.UnlinkEntry)
	tenant.Post("/timesheets/:id/submit", r.Timesheet.Submit)

	review := tenant.Group("/timesheets")
	review.Use(appmw.Require(policy.ApproveTimesheets))
	review.Post("/:id/approve", r.Timesheet.Approve)
	review.Post("/:id/reject", r.Timesheet.Reject)
	review.Post("/:id/reopen", r.Timesheet.Reopen)

	invoices := tenant.Group("/invoices")
	invoices.Use(appmw.Require(policy.ManageBilling))
	invoices.Post("", r.Invoice.Generate)
	invoices.Get("", r.Invoice.List)
	invoices.Get("/:id", r.Invoice.Get)
	invoices.Patch("/:id/status", r.Invoice.UpdateStatus)
	invoices.Post("/:id/pdf", r.Invoice.PDF)
	invoices.Get("/:id/pdf", r.Invoice.PDF)
	invoices.Post("/:id/payments", r.Invoice.RecordPayment)
	invoices.Get("/:id/payments", r.Invoice.ListPayments)

	payroll := tenant.Group("/payroll/batches")
	payroll.Use(appmw.Require(policy.ManagePayroll))
	payroll.Post("", r.Payroll.Generate)
	payroll.Get("", r.Payroll.List)
	payroll.Get("/:id", r.Payroll.Get)
	payroll.Post("/:id/approve", r.Payroll.Approve)
	payroll.Post("/:id/paid", r.Payroll.MarkPaid)

	tenant.Get("/notifications", r.Notification.List)
	tenant.Get("/notifications/unread-count", r.Notification.UnreadCount)
	tenant.Get("/notifications/stream", r.SSE.Connect)
	tenant.Post("/notifications/read-all", r.Notification.MarkAllRead)
	tenant.Patch("/notifications/:id/read", r.Notification.MarkRead)

	if r.Electric != nil {
		tenant.Get("/electric/notifications", r.Electric.Notifications)
	}
}
