package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/oauth"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", f.counter),
		Name:       fmt.Sprintf("Test User %d", f.counter),
		Provider:   "github",
		ProviderID: fmt.Sprintf("provider-%d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, global_role, created_at, updated_at
	`, user.Email, user.Name, user.AvatarURL, user.Provider, user.ProviderID).Scan(
		&user.ID, &user.GlobalRole, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// RoleID looks up a seeded role.
func (f *Fixtures) RoleID(t *testing.T, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := f.db.Pool.QueryRow(context.Background(), `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		t.Fatalf("failed to load role %s: %v", name, err)
	}
	return id
}

// CreateTenant creates a tenant with owner as its owner member.
func (f *Fixtures) CreateTenant(t *testing.T, owner *models.User) *models.Tenant {
	t.Helper()
	f.counter++

	tenant := &models.Tenant{
		Name:    fmt.Sprintf("Test Agency %d", f.counter),
		Slug:    fmt.Sprintf("test-agency-%d", f.counter),
		OwnerID: owner.ID,
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tenants (name, slug, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, tenant.Name, tenant.Slug, tenant.OwnerID).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	f.AddMember(t, tenant, owner, models.RoleOwner, 0)
	return tenant
}

// AddMember adds user to tenant with the named role and returns the
// membership.
func (f *Fixtures) AddMember(t *testing.T, tenant *models.Tenant, user *models.User, role string, rate float64) *models.TenantUser {
	t.Helper()

	m := &models.TenantUser{
		TenantID:   tenant.ID,
		UserID:     user.ID,
		RoleID:     f.RoleID(t, role),
		Role:       role,
		HourlyRate: rate,
	}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tenant_users (tenant_id, user_id, role_id, hourly_rate)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.TenantID, m.UserID, m.RoleID, m.HourlyRate).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		t.Fatalf("failed to add tenant member: %v", err)
	}
	return m
}

// CreateProject creates an active project and adds members to it.
func (f *Fixtures) CreateProject(t *testing.T, tenant *models.Tenant, creator *models.User, rate float64, members ...*models.User) *models.Project {
	t.Helper()
	f.counter++

	p := &models.Project{
		TenantID:   tenant.ID,
		Name:       fmt.Sprintf("Test Project %d", f.counter),
		ClientName: "Globex",
		Status:     models.ProjectStatusActive,
		HourlyRate: rate,
	}
	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (tenant_id, name, client_name, hourly_rate, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, p.TenantID, p.Name, p.ClientName, p.HourlyRate, creator.ID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	for _, u := range members {
		if _, err := f.db.Pool.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)
		`, p.ID, u.ID, models.ProjectRoleMember); err != nil {
			t.Fatalf("failed to add project member: %v", err)
		}
	}
	return p
}

// CreateTask creates a todo task in project.
func (f *Fixtures) CreateTask(t *testing.T, project *models.Project, creator *models.User) *models.Task {
	t.Helper()
	f.counter++

	task := &models.Task{
		TenantID:  project.TenantID,
		ProjectID: project.ID,
		Title:     fmt.Sprintf("Test Task %d", f.counter),
		Status:    models.TaskStatusTodo,
	}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO tasks (tenant_id, project_id, title, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, task.TenantID, task.ProjectID, task.Title, creator.ID).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}

// OAuthUserInfo creates test OAuth user info
func OAuthUserInfo(email, name, provider, id string) *oauth.UserInfo {
	return &oauth.UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: "https://example.com/avatar.png",
		ID:        id,
		Provider:  provider,
	}
}
