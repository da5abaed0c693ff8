package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/oauth"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID uuid.UUID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(tokenString string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

type TenantServiceInterface interface {
	Create(ctx context.Context, name, slug string, ownerID uuid.UUID) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantWithRole, error)
	GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error)
	ListMembers(ctx context.Context, tenantID uuid.UUID, page models.Page) ([]models.TenantUser, int, error)
	UpdateMemberRole(ctx context.Context, tenantID, userID, roleID uuid.UUID) (*models.TenantUser, error)
	UpdateMemberRate(ctx context.Context, tenantID, userID uuid.UUID, rate float64) error
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
	ListRoles(ctx context.Context) ([]models.Role, error)
}

type InvitationServiceInterface interface {
	Create(ctx context.Context, actor *models.TenantUser, in services.CreateInvitationInput) (*models.Invitation, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.Invitation, int, error)
	ListMine(ctx context.Context, email string) ([]models.Invitation, error)
	AcceptByID(ctx context.Context, userID uuid.UUID, email string, id uuid.UUID) (*models.Invitation, error)
	AcceptByToken(ctx context.Context, userID uuid.UUID, email, token string) (*models.Invitation, error)
	Reject(ctx context.Context, email string, id uuid.UUID) (*models.Invitation, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error)
	Resend(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error)
}

type ProjectServiceInterface interface {
	List(ctx context.Context, actor *models.TenantUser, page models.Page) ([]models.Project, int, error)
	Create(ctx context.Context, tenantID, creatorID uuid.UUID, in services.ProjectInput) (*models.Project, error)
	GetForMember(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd services.ProjectUpdate) (*models.Project, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ListMembers(ctx context.Context, tenantID, projectID uuid.UUID) ([]models.ProjectMember, error)
	RemoveMember(ctx context.Context, tenantID, projectID, userID uuid.UUID) error
}

type TaskServiceInterface interface {
	List(ctx context.Context, tenantID, projectID uuid.UUID, f services.TaskFilter, page models.Page) ([]models.Task, int, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error)
	Create(ctx context.Context, tenantID, projectID, creatorID uuid.UUID, in services.TaskInput) (*models.Task, error)
	Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd services.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type TimeEntryServiceInterface interface {
	Start(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID, description string, billable bool) (*models.TimeEntry, error)
	Stop(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID) (*models.TimeEntry, error)
	List(ctx context.Context, actor *models.TenantUser, f services.TimeEntryFilter, page models.Page) ([]models.TimeEntry, int, error)
	Create(ctx context.Context, actor *models.TenantUser, in services.TimeEntryInput) (*models.TimeEntry, error)
	Update(ctx context.Context, actor *models.TenantUser, id uuid.UUID, upd services.TimeEntryUpdate) (*models.TimeEntry, error)
	Delete(ctx context.Context, actor *models.TenantUser, id uuid.UUID) error
}

type TimesheetServiceInterface interface {
	Create(ctx context.Context, actor *models.TenantUser, weekOf time.Time) (*models.Timesheet, error)
	List(ctx context.Context, actor *models.TenantUser, f services.TimesheetFilter, page models.Page) ([]models.Timesheet, int, error)
	Get(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error)
	LinkEntries(ctx context.Context, actor *models.TenantUser, id uuid.UUID, entryIDs []uuid.UUID) (*models.Timesheet, error)
	UnlinkEntry(ctx context.Context, actor *models.TenantUser, id, entryID uuid.UUID) (*models.Timesheet, error)
	Submit(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error)
	Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error)
	Reject(ctx context.Context, actor *models.TenantUser, id uuid.UUID, reason string) (*models.Timesheet, error)
	Reopen(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error)
}

type InvoiceServiceInterface interface {
	Generate(ctx context.Context, actor *models.TenantUser, in services.GenerateInvoiceInput) (*models.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, f services.InvoiceFilter, page models.Page) ([]models.Invoice, int, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*models.Invoice, error)
}

type PaymentServiceInterface interface {
	Record(ctx context.Context, actor *models.TenantUser, invoiceID uuid.UUID, in services.PaymentInput) (*models.Payment, error)
	List(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]models.Payment, error)
}

type PayrollServiceInterface interface {
	Generate(ctx context.Context, actor *models.TenantUser, periodStart, periodEnd time.Time) (*models.PayrollBatch, error)
	List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.PayrollBatch, int, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.PayrollBatch, error)
	Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error)
	MarkPaid(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error)
}

type NotificationServiceInterface interface {
	List(ctx context.Context, tenantID, userID uuid.UUID, unreadOnly bool, page models.Page) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, tenantID, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
}

// Compile-time checks
var (
	_ UserServiceInterface         = (*services.UserService)(nil)
	_ TokenServiceInterface        = (*services.TokenService)(nil)
	_ JWTServiceInterface          = (*services.JWTService)(nil)
	_ TenantServiceInterface       = (*services.TenantService)(nil)
	_ InvitationServiceInterface   = (*services.InvitationService)(nil)
	_ ProjectServiceInterface      = (*services.ProjectService)(nil)
	_ TaskServiceInterface         = (*services.TaskService)(nil)
	_ TimeEntryServiceInterface    = (*services.TimeEntryService)(nil)
	_ TimesheetServiceInterface    = (*services.TimesheetService)(nil)
	_ InvoiceServiceInterface      = (*services.InvoiceService)(nil)
	_ PaymentServiceInterface      = (*services.PaymentService)(nil)
	_ PayrollServiceInterface      = (*services.PayrollService)(nil)
	_ NotificationServiceInterface = (*services.NotificationService)(nil)
)
