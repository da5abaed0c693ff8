package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/policy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `id, tenant_id, name, description, client_name, status, hourly_rate, budget_hours, created_by, created_at, updated_at`

type ProjectInput struct {
	Name        string
	Description string
	ClientName  string
	HourlyRate  float64
	BudgetHours *float64
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	ClientName  *string
	Status      *string
	HourlyRate  *float64
	BudgetHours *float64
}

func (u ProjectUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.ClientName == nil &&
		u.Status == nil && u.HourlyRate == nil && u.BudgetHours == nil
}

type ProjectService struct {
	db       *database.DB
	notifier Notifier
}

func NewProjectService(db *database.DB, notifier Notifier) *ProjectService {
	return &ProjectService{db: db, notifier: notifier}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.ClientName, &p.Status,
		&p.HourlyRate, &p.BudgetHours, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProjects(rows pgx.Rows) ([]models.Project, error) {
	defer rows.Close()
	var list []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// List returns every tenant project to members allowed to view all of them,
// otherwise only the projects the member belongs to.
func (s *ProjectService) List(ctx context.Context, actor *models.TenantUser, page models.Page) ([]models.Project, int, error) {
	all := policy.Allow(actor, policy.ViewAllProjects)

	var total int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM projects p
		WHERE p.tenant_id = $1
		  AND ($2 OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $3))
	`, actor.TenantID, all, actor.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects p
		WHERE p.tenant_id = $1
		  AND ($2 OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $3))
		ORDER BY p.created_at DESC
		LIMIT $4 OFFSET $5
	`, actor.TenantID, all, actor.UserID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	list, err := collectProjects(rows)
	return list, total, err
}

// Create inserts the project and makes its creator a manager.
func (s *ProjectService) Create(ctx context.Context, tenantID, creatorID uuid.UUID, in ProjectInput) (*models.Project, error) {
	var project *models.Project
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		project, err = scanProject(tx.QueryRow(ctx, `
			INSERT INTO projects (tenant_id, name, description, client_name, hourly_rate, budget_hours, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+projectColumns,
			tenantID, in.Name, in.Description, in.ClientName, in.HourlyRate, in.BudgetHours, creatorID))
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, role)
			VALUES ($1, $2, $3)
		`, project.ID, creatorID, models.ProjectRoleManager)
		if err != nil {
			return fmt.Errorf("failed to add project manager: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Project, error) {
	p, err := scanProject(s.db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	return p, nil
}

func (s *ProjectService) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)
	`, projectID, userID).Scan(&exists)
	return exists, err
}

// GetForMember loads the project and checks that actor may see it.
// Non-members get ErrProjectNotFound so project ids are not disclosed.
func (s *ProjectService) GetForMember(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Project, error) {
	p, err := s.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if policy.Allow(actor, policy.ViewAllProjects) {
		return p, nil
	}
	ok, err := s.IsMember(ctx, p.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

// Update applies the non-nil fields and notifies the other project members.
// A failure to load the members is logged; the update itself stands.
func (s *ProjectService) Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd ProjectUpdate) (*models.Project, error) {
	if upd.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	p, err := scanProject(s.db.Pool.QueryRow(ctx, `
		UPDATE projects SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			client_name = COALESCE($3, client_name),
			status = COALESCE($4, status),
			hourly_rate = COALESCE($5, hourly_rate),
			budget_hours = COALESCE($6, budget_hours),
			updated_at = NOW()
		WHERE id = $7 AND tenant_id = $8
		RETURNING `+projectColumns,
		upd.Name, upd.Description, upd.ClientName, upd.Status, upd.HourlyRate, upd.BudgetHours, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	members, err := s.ListMembers(ctx, tenantID, p.ID)
	if err != nil {
		logging.FromContext(ctx).Warn("project update notifications skipped",
			"project_id", p.ID,
			"error", err,
		)
		return p, nil
	}
	for _, m := range members {
		s.notifier.NotifyBestEffort(ctx, NotifyParams{
			TenantID:    tenantID,
			RecipientID: m.UserID,
			ActorID:     actorID,
			Type:        models.NotificationProjectUpdated,
			Title:       "Project updated",
			Message:     fmt.Sprintf("%s was updated", p.Name),
			ActionURL:   fmt.Sprintf("/projects/%s", p.ID),
		})
	}
	return p, nil
}

func (s *ProjectService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *ProjectService) ListMembers(ctx context.Context, tenantID, projectID uuid.UUID) ([]models.ProjectMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT pm.id, pm.project_id, pm.user_id, pm.role, pm.created_at, u.email, u.name, u.avatar_url
		FROM project_members pm
		INNER JOIN projects p ON p.id = pm.project_id
		INNER JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1 AND p.tenant_id = $2
		ORDER BY u.name
	`, projectID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	var members []models.ProjectMember
	for rows.Next() {
		var m models.ProjectMember
		var u models.User
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &u.Email, &u.Name, &u.AvatarURL); err != nil {
			return nil, err
		}
		u.ID = m.UserID
		m.User = &u
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *ProjectService) RemoveMember(ctx context.Context, tenantID, projectID, userID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM project_members pm
		USING projects p
		WHERE pm.project_id = p.id AND p.id = $1 AND p.tenant_id = $2 AND pm.user_id = $3
	`, projectID, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotProjectMember
	}
	return nil
}
