package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tenantColumns = `id, name, slug, owner_id, created_at, updated_at`

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type TenantService struct {
	db *database.DB
}

func NewTenantService(db *database.DB) *TenantService {
	return &TenantService{db: db}
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts the tenant and makes ownerID its owner in one transaction.
func (s *TenantService) Create(ctx context.Context, name, slug string, ownerID uuid.UUID) (*models.Tenant, error) {
	if slug == "" {
		slug = Slugify(name)
	}

	var tenant *models.Tenant
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		tenant, err = scanTenant(tx.QueryRow(ctx, `
			INSERT INTO tenants (name, slug, owner_id)
			VALUES ($1, $2, $3)
			RETURNING `+tenantColumns,
			name, slug, ownerID))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tenant_users (tenant_id, user_id, role_id)
			SELECT $1, $2, id FROM roles WHERE name = $3
		`, tenant.ID, ownerID, models.RoleOwner)
		if err != nil {
			return fmt.Errorf("failed to add owner as member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanTenant(s.db.Pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrTenantNotFound)
	}
	return t, nil
}

func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := scanTenant(s.db.Pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFound(err, ErrTenantNotFound)
	}
	return t, nil
}

func (s *TenantService) ListAll(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func (s *TenantService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TenantWithRole, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.slug, t.owner_id, t.created_at, t.updated_at, r.name
		FROM tenants t
		INNER JOIN tenant_users tu ON tu.tenant_id = t.id
		INNER JOIN roles r ON r.id = tu.role_id
		WHERE tu.user_id = $1
		ORDER BY t.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.TenantWithRole
	for rows.Next() {
		var t models.TenantWithRole
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt, &t.Role); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

const membershipSelect = `
	SELECT tu.id, tu.tenant_id, tu.user_id, tu.role_id, r.name, tu.hourly_rate, tu.created_at
	FROM tenant_users tu
	INNER JOIN roles r ON r.id = tu.role_id`

func scanMembership(row pgx.Row) (*models.TenantUser, error) {
	var m models.TenantUser
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.RoleID, &m.Role, &m.HourlyRate, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMembership loads the user's membership and role in the tenant.
func (s *TenantService) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	m, err := scanMembership(s.db.Pool.QueryRow(ctx, membershipSelect+`
		WHERE tu.tenant_id = $1 AND tu.user_id = $2
	`, tenantID, userID))
	if err != nil {
		return nil, notFound(err, ErrNotTenantMember)
	}
	return m, nil
}

func (s *TenantService) ListMembers(ctx context.Context, tenantID uuid.UUID, page models.Page) ([]models.TenantUser, int, error) {
	var total int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenant_users WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT tu.id, tu.tenant_id, tu.user_id, tu.role_id, r.name, tu.hourly_rate, tu.created_at,
		       u.email, u.name, u.avatar_url
		FROM tenant_users tu
		INNER JOIN roles r ON r.id = tu.role_id
		INNER JOIN users u ON u.id = tu.user_id
		WHERE tu.tenant_id = $1
		ORDER BY u.name
		LIMIT $2 OFFSET $3
	`, tenantID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.TenantUser
	for rows.Next() {
		var m models.TenantUser
		var u models.User
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.RoleID, &m.Role, &m.HourlyRate, &m.CreatedAt,
			&u.Email, &u.Name, &u.AvatarURL); err != nil {
			return nil, 0, err
		}
		u.ID = m.UserID
		m.User = &u
		members = append(members, m)
	}
	return members, total, rows.Err()
}

// UpdateMemberRole changes a member's role. Ownership is neither granted nor
// revoked this way.
func (s *TenantService) UpdateMemberRole(ctx context.Context, tenantID, userID, roleID uuid.UUID) (*models.TenantUser, error) {
	current, err := s.GetMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, ErrNotTenantMember) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if current.Role == models.RoleOwner {
		return nil, ErrOwnerImmutable
	}

	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.Name == models.RoleOwner {
		return nil, ErrOwnerImmutable
	}

	_, err = s.db.Pool.Exec(ctx, `
		UPDATE tenant_users SET role_id = $1 WHERE tenant_id = $2 AND user_id = $3
	`, role.ID, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	current.RoleID = role.ID
	current.Role = role.Name
	return current, nil
}

func (s *TenantService) UpdateMemberRate(ctx context.Context, tenantID, userID uuid.UUID, rate float64) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE tenant_users SET hourly_rate = $1 WHERE tenant_id = $2 AND user_id = $3
	`, rate, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to update hourly rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Delete removes the tenant. Every tenant-scoped row cascades with it.
func (s *TenantService) Delete(ctx context.Context, tenantID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// RemoveMember drops the user from the tenant and all of its projects.
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var role string
		err := tx.QueryRow(ctx, `
			SELECT r.name FROM tenant_users tu
			INNER JOIN roles r ON r.id = tu.role_id
			WHERE tu.tenant_id = $1 AND tu.user_id = $2
			FOR UPDATE OF tu
		`, tenantID, userID).Scan(&role)
		if err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if role == models.RoleOwner {
			return ErrOwnerImmutable
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM project_members
			WHERE user_id = $1 AND project_id IN (SELECT id FROM projects WHERE tenant_id = $2)
		`, userID, tenantID)
		if err != nil {
			return fmt.Errorf("failed to remove project memberships: %w", err)
		}

		_, err = tx.Exec(ctx, `DELETE FROM tenant_users WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

func (s *TenantService) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *TenantService) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var r models.Role
	err := s.db.Pool.QueryRow(ctx, `SELECT id, name, description FROM roles WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Description)
	if err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return &r, nil
}
