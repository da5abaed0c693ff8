package testutil

import (
	"context"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/oauth"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/internal/sse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func one[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func many[T any](args mock.Arguments) ([]T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func paged[T any](args mock.Arguments) ([]T, int, error) {
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]T), args.Int(1), args.Error(2)
}

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	return one[models.User](m.Called(ctx, info))
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return one[models.User](m.Called(ctx, id))
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	return one[models.User](m.Called(ctx, id, name))
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *MockTokenService) RotateRefreshToken(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (uuid.UUID, error) {
	args := m.Called(ctx, oldHash, newHash, expiresAt)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(userID uuid.UUID, email string) (*services.TokenPair, error) {
	return one[services.TokenPair](m.Called(userID, email))
}

func (m *MockJWTService) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	args := m.Called(tokenString)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

// MockOAuthProvider mocks an oauth.Provider
type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) GetConsentURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth.UserInfo, error) {
	return one[oauth.UserInfo](m.Called(ctx, code))
}

func (m *MockOAuthProvider) Name() string {
	return m.Called().String(0)
}

// MockTenantService mocks the TenantService
type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) Create(ctx context.Context, name, slug string, ownerID uuid.UUID) (*models.Tenant, error) {
	return one[models.Tenant](m.Called(ctx, name, slug, ownerID))
}

func (m *MockTenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return one[models.Tenant](m.Called(ctx, id))
}

func (m *MockTenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return one[models.Tenant](m.Called(ctx, slug))
}

func (m *MockTenantService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantWithRole, error) {
	return many[models.TenantWithRole](m.Called(ctx, userID))
}

func (m *MockTenantService) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	return one[models.TenantUser](m.Called(ctx, tenantID, userID))
}

func (m *MockTenantService) ListMembers(ctx context.Context, tenantID uuid.UUID, page models.Page) ([]models.TenantUser, int, error) {
	return paged[models.TenantUser](m.Called(ctx, tenantID, page))
}

func (m *MockTenantService) UpdateMemberRole(ctx context.Context, tenantID, userID, roleID uuid.UUID) (*models.TenantUser, error) {
	return one[models.TenantUser](m.Called(ctx, tenantID, userID, roleID))
}

func (m *MockTenantService) UpdateMemberRate(ctx context.Context, tenantID, userID uuid.UUID, rate float64) error {
	return m.Called(ctx, tenantID, userID, rate).Error(0)
}

func (m *MockTenantService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	return m.Called(ctx, tenantID, userID).Error(0)
}

func (m *MockTenantService) Delete(ctx context.Context, tenantID uuid.UUID) error {
	return m.Called(ctx, tenantID).Error(0)
}

func (m *MockTenantService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return many[models.Role](m.Called(ctx))
}

// MockInvitationService mocks the InvitationService
type MockInvitationService struct {
	mock.Mock
}

func (m *MockInvitationService) Create(ctx context.Context, actor *models.TenantUser, in services.CreateInvitationInput) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, actor, in))
}

func (m *MockInvitationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, tenantID, id))
}

func (m *MockInvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, token))
}

func (m *MockInvitationService) List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.Invitation, int, error) {
	return paged[models.Invitation](m.Called(ctx, tenantID, status, page))
}

func (m *MockInvitationService) ListMine(ctx context.Context, email string) ([]models.Invitation, error) {
	return many[models.Invitation](m.Called(ctx, email))
}

func (m *MockInvitationService) AcceptByID(ctx context.Context, userID uuid.UUID, email string, id uuid.UUID) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, userID, email, id))
}

func (m *MockInvitationService) AcceptByToken(ctx context.Context, userID uuid.UUID, email, token string) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, userID, email, token))
}

func (m *MockInvitationService) Reject(ctx context.Context, email string, id uuid.UUID) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, email, id))
}

func (m *MockInvitationService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, tenantID, id))
}

func (m *MockInvitationService) Resend(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	return one[models.Invitation](m.Called(ctx, tenantID, id))
}

// MockProjectService mocks the ProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) List(ctx context.Context, actor *models.TenantUser, page models.Page) ([]models.Project, int, error) {
	return paged[models.Project](m.Called(ctx, actor, page))
}

func (m *MockProjectService) Create(ctx context.Context, tenantID, creatorID uuid.UUID, in services.ProjectInput) (*models.Project, error) {
	return one[models.Project](m.Called(ctx, tenantID, creatorID, in))
}

func (m *MockProjectService) GetForMember(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Project, error) {
	return one[models.Project](m.Called(ctx, actor, id))
}

func (m *MockProjectService) Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd services.ProjectUpdate) (*models.Project, error) {
	return one[models.Project](m.Called(ctx, actorID, tenantID, id, upd))
}

func (m *MockProjectService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockProjectService) ListMembers(ctx context.Context, tenantID, projectID uuid.UUID) ([]models.ProjectMember, error) {
	return many[models.ProjectMember](m.Called(ctx, tenantID, projectID))
}

func (m *MockProjectService) RemoveMember(ctx context.Context, tenantID, projectID, userID uuid.UUID) error {
	return m.Called(ctx, tenantID, projectID, userID).Error(0)
}

// MockTaskService mocks the TaskService
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) List(ctx context.Context, tenantID, projectID uuid.UUID, f services.TaskFilter, page models.Page) ([]models.Task, int, error) {
	return paged[models.Task](m.Called(ctx, tenantID, projectID, f, page))
}

func (m *MockTaskService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	return one[models.Task](m.Called(ctx, tenantID, id))
}

func (m *MockTaskService) Create(ctx context.Context, tenantID, projectID, creatorID uuid.UUID, in services.TaskInput) (*models.Task, error) {
	return one[models.Task](m.Called(ctx, tenantID, projectID, creatorID, in))
}

func (m *MockTaskService) Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd services.TaskUpdate) (*models.Task, error) {
	return one[models.Task](m.Called(ctx, actorID, tenantID, id, upd))
}

func (m *MockTaskService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

// MockTimeEntryService mocks the TimeEntryService
type MockTimeEntryService struct {
	mock.Mock
}

func (m *MockTimeEntryService) Start(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID, description string, billable bool) (*models.TimeEntry, error) {
	return one[models.TimeEntry](m.Called(ctx, actor, taskID, description, billable))
}

func (m *MockTimeEntryService) Stop(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID) (*models.TimeEntry, error) {
	return one[models.TimeEntry](m.Called(ctx, actor, taskID))
}

func (m *MockTimeEntryService) List(ctx context.Context, actor *models.TenantUser, f services.TimeEntryFilter, page models.Page) ([]models.TimeEntry, int, error) {
	return paged[models.TimeEntry](m.Called(ctx, actor, f, page))
}

func (m *MockTimeEntryService) Create(ctx context.Context, actor *models.TenantUser, in services.TimeEntryInput) (*models.TimeEntry, error) {
	return one[models.TimeEntry](m.Called(ctx, actor, in))
}

func (m *MockTimeEntryService) Update(ctx context.Context, actor *models.TenantUser, id uuid.UUID, upd services.TimeEntryUpdate) (*models.TimeEntry, error) {
	return one[models.TimeEntry](m.Called(ctx, actor, id, upd))
}

func (m *MockTimeEntryService) Delete(ctx context.Context, actor *models.TenantUser, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockTimesheetService mocks the TimesheetService
type MockTimesheetService struct {
	mock.Mock
}

func (m *MockTimesheetService) Create(ctx context.Context, actor *models.TenantUser, weekOf time.Time) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, weekOf))
}

func (m *MockTimesheetService) List(ctx context.Context, actor *models.TenantUser, f services.TimesheetFilter, page models.Page) ([]models.Timesheet, int, error) {
	return paged[models.Timesheet](m.Called(ctx, actor, f, page))
}

func (m *MockTimesheetService) Get(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id))
}

func (m *MockTimesheetService) LinkEntries(ctx context.Context, actor *models.TenantUser, id uuid.UUID, entryIDs []uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id, entryIDs))
}

func (m *MockTimesheetService) UnlinkEntry(ctx context.Context, actor *models.TenantUser, id, entryID uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id, entryID))
}

func (m *MockTimesheetService) Submit(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id))
}

func (m *MockTimesheetService) Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id))
}

func (m *MockTimesheetService) Reject(ctx context.Context, actor *models.TenantUser, id uuid.UUID, reason string) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id, reason))
}

func (m *MockTimesheetService) Reopen(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	return one[models.Timesheet](m.Called(ctx, actor, id))
}

// MockInvoiceService mocks the InvoiceService
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Generate(ctx context.Context, actor *models.TenantUser, in services.GenerateInvoiceInput) (*models.Invoice, error) {
	return one[models.Invoice](m.Called(ctx, actor, in))
}

func (m *MockInvoiceService) List(ctx context.Context, tenantID uuid.UUID, f services.InvoiceFilter, page models.Page) ([]models.Invoice, int, error) {
	return paged[models.Invoice](m.Called(ctx, tenantID, f, page))
}

func (m *MockInvoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	return one[models.Invoice](m.Called(ctx, tenantID, id))
}

func (m *MockInvoiceService) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*models.Invoice, error) {
	return one[models.Invoice](m.Called(ctx, tenantID, id, status))
}

// MockPaymentService mocks the PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Record(ctx context.Context, actor *models.TenantUser, invoiceID uuid.UUID, in services.PaymentInput) (*models.Payment, error) {
	return one[models.Payment](m.Called(ctx, actor, invoiceID, in))
}

func (m *MockPaymentService) List(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]models.Payment, error) {
	return many[models.Payment](m.Called(ctx, tenantID, invoiceID))
}

// MockPayrollService mocks the PayrollService
type MockPayrollService struct {
	mock.Mock
}

func (m *MockPayrollService) Generate(ctx context.Context, actor *models.TenantUser, periodStart, periodEnd time.Time) (*models.PayrollBatch, error) {
	return one[models.PayrollBatch](m.Called(ctx, actor, periodStart, periodEnd))
}

func (m *MockPayrollService) List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.PayrollBatch, int, error) {
	return paged[models.PayrollBatch](m.Called(ctx, tenantID, status, page))
}

func (m *MockPayrollService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.PayrollBatch, error) {
	return one[models.PayrollBatch](m.Called(ctx, tenantID, id))
}

func (m *MockPayrollService) Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error) {
	return one[models.PayrollBatch](m.Called(ctx, actor, id))
}

func (m *MockPayrollService) MarkPaid(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error) {
	return one[models.PayrollBatch](m.Called(ctx, actor, id))
}

// MockNotificationService mocks the NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, tenantID, userID uuid.UUID, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	return paged[models.Notification](m.Called(ctx, tenantID, userID, unreadOnly, page))
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) (*models.Notification, error) {
	return one[models.Notification](m.Called(ctx, tenantID, userID, id))
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStreamHub records registrations and lets a test push messages.
type MockStreamHub struct {
	mock.Mock
}

func (m *MockStreamHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockStreamHub) Unregister(client *sse.Client) {
	m.Called(client)
}
