package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invitationTokenBytes = 32

// InvitationMailer delivers invitation emails.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, e InvitationEmail) error
}

type InvitationConfig struct {
	TTL         time.Duration
	FrontendURL string
}

type CreateInvitationInput struct {
	Email     string
	RoleID    uuid.UUID
	ProjectID *uuid.UUID
}

type InvitationService struct {
	db       *database.DB
	mailer   InvitationMailer
	notifier Notifier
	cfg      InvitationConfig
	now      func() time.Time
}

func NewInvitationService(db *database.DB, mailer InvitationMailer, notifier Notifier, cfg InvitationConfig) *InvitationService {
	return &InvitationService{db: db, mailer: mailer, notifier: notifier, cfg: cfg, now: time.Now}
}

func generateInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

const invitationSelect = `
	SELECT i.id, i.tenant_id, i.email, i.token, i.role_id, r.name, i.project_id, i.invited_by,
	       i.status, i.expires_at, i.accepted_by, i.accepted_at, i.created_at, i.updated_at,
	       t.name, p.name, u.name
	FROM invitations i
	INNER JOIN roles r ON r.id = i.role_id
	INNER JOIN tenants t ON t.id = i.tenant_id
	LEFT JOIN projects p ON p.id = i.project_id
	INNER JOIN users u ON u.id = i.invited_by`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Email, &inv.Token, &inv.RoleID, &inv.Role, &inv.ProjectID, &inv.InvitedBy,
		&inv.Status, &inv.ExpiresAt, &inv.AcceptedBy, &inv.AcceptedAt, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.TenantName, &inv.ProjectName, &inv.InviterName)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func collectInvitations(rows pgx.Rows) ([]models.Invitation, error) {
	defer rows.Close()
	var list []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inv)
	}
	return list, rows.Err()
}

func invitationLockKey(tenantID uuid.UUID, email string, projectID *uuid.UUID) string {
	project := "-"
	if projectID != nil {
		project = projectID.String()
	}
	return fmt.Sprintf("invitation:%s:%s:%s", tenantID, email, project)
}

func (s *InvitationService) acceptURL(token string) string {
	return fmt.Sprintf("%s/invitations/%s", s.cfg.FrontendURL, token)
}

// Create issues an invitation. The duplicate and membership checks run under
// a transaction-scoped advisory lock on (tenant, email, project), so two
// concurrent creates for the same target cannot both succeed.
func (s *InvitationService) Create(ctx context.Context, actor *models.TenantUser, in CreateInvitationInput) (*models.Invitation, error) {
	email := NormalizeEmail(in.Email)
	now := s.now()

	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	var inv *models.Invitation
	var inTenant bool
	var inviteeID uuid.UUID

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var roleName string
		err := tx.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, in.RoleID).Scan(&roleName)
		if err != nil {
			return notFound(err, ErrRoleNotFound)
		}
		if roleName == models.RoleOwner {
			return ErrOwnerImmutable
		}

		if in.ProjectID != nil {
			var exists bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND tenant_id = $2)
			`, *in.ProjectID, actor.TenantID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check project: %w", err)
			}
			if !exists {
				return ErrProjectNotFound
			}
		}

		_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			invitationLockKey(actor.TenantID, email, in.ProjectID))
		if err != nil {
			return fmt.Errorf("failed to lock invitation target: %w", err)
		}

		var inProject bool
		err = tx.QueryRow(ctx, `
			SELECT u.id,
			       EXISTS(SELECT 1 FROM tenant_users tu WHERE tu.tenant_id = $1 AND tu.user_id = u.id),
			       EXISTS(SELECT 1 FROM project_members pm WHERE pm.project_id = $2 AND pm.user_id = u.id)
			FROM users u WHERE u.email = $3
		`, actor.TenantID, in.ProjectID, email).Scan(&inviteeID, &inTenant, &inProject)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if in.ProjectID == nil && inTenant {
			return ErrAlreadyMember
		}
		if in.ProjectID != nil && inProject {
			return ErrAlreadyMember
		}

		var duplicate bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM invitations
				WHERE tenant_id = $1 AND email = $2 AND project_id IS NOT DISTINCT FROM $3
				  AND status = $4 AND expires_at > $5
			)
		`, actor.TenantID, email, in.ProjectID, models.InvitationPending, now).Scan(&duplicate)
		if err != nil {
			return fmt.Errorf("failed to check duplicates: %w", err)
		}
		if duplicate {
			return ErrInvitationDuplicate
		}

		var id uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO invitations (tenant_id, email, token, role_id, project_id, invited_by, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, actor.TenantID, email, token, in.RoleID, in.ProjectID, actor.UserID, models.InvitationPending, now.Add(s.cfg.TTL)).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		inv, err = scanInvitation(tx.QueryRow(ctx, invitationSelect+` WHERE i.id = $1`, id))
		return err
	})
	if err != nil {
		return nil, err
	}

	if !inTenant {
		if err := s.mailer.SendInvitation(ctx, s.invitationEmail(inv)); err != nil {
			logging.FromContext(ctx).Warn("invitation email failed",
				"invitation_id", inv.ID,
				"error", err,
			)
		}
	} else {
		s.notifier.NotifyBestEffort(ctx, NotifyParams{
			TenantID:    inv.TenantID,
			RecipientID: inviteeID,
			ActorID:     actor.UserID,
			Type:        models.NotificationProjectInvitation,
			Title:       "Project invitation",
			Message:     fmt.Sprintf("%s invited you to %s", inv.InviterName, deref(inv.ProjectName)),
			ActionURL:   fmt.Sprintf("/invitations/%s", inv.ID),
		})
	}

	return inv, nil
}

func (s *InvitationService) invitationEmail(inv *models.Invitation) InvitationEmail {
	return InvitationEmail{
		To:          inv.Email,
		TenantName:  inv.TenantName,
		ProjectName: deref(inv.ProjectName),
		InviterName: inv.InviterName,
		Role:        inv.Role,
		AcceptURL:   s.acceptURL(inv.Token),
		ExpiresAt:   inv.ExpiresAt,
	}
}

func (s *InvitationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	inv, err := scanInvitation(s.db.Pool.QueryRow(ctx, invitationSelect+` WHERE i.id = $1 AND i.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	return inv, nil
}

func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := scanInvitation(s.db.Pool.QueryRow(ctx, invitationSelect+` WHERE i.token = $1`, token))
	if err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	return inv, nil
}

// List returns the tenant's invitations. status filters on the effective
// status, so "expired" matches pending rows past their expiry.
func (s *InvitationService) List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.Invitation, int, error) {
	now := s.now()
	const filter = `
		WHERE i.tenant_id = $1
		  AND ($2 = '' OR (CASE WHEN i.status = 'pending' AND i.expires_at <= $3 THEN 'expired' ELSE i.status END) = $2)`

	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM invitations i`+filter, tenantID, status, now).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invitations: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, invitationSelect+filter+`
		ORDER BY i.created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, status, now, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invitations: %w", err)
	}
	list, err := collectInvitations(rows)
	return list, total, err
}

// ListMine returns active invitations addressed to email across all tenants.
func (s *InvitationService) ListMine(ctx context.Context, email string) ([]models.Invitation, error) {
	rows, err := s.db.Pool.Query(ctx, invitationSelect+`
		WHERE i.email = $1 AND i.status = $2 AND i.expires_at > $3
		ORDER BY i.created_at DESC
	`, NormalizeEmail(email), models.InvitationPending, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return collectInvitations(rows)
}

// checkRespondable enforces the guards shared by accept and reject.
func checkRespondable(inv *models.Invitation, email string, now time.Time) error {
	if NormalizeEmail(email) != inv.Email {
		return ErrInvitationEmailMismatch
	}
	if inv.Status != models.InvitationPending {
		return ErrInvitationNotPending
	}
	if inv.IsExpired(now) {
		return ErrInvitationExpired
	}
	return nil
}

func (s *InvitationService) AcceptByID(ctx context.Context, userID uuid.UUID, email string, id uuid.UUID) (*models.Invitation, error) {
	return s.accept(ctx, userID, email, `i.id = $1`, id)
}

func (s *InvitationService) AcceptByToken(ctx context.Context, userID uuid.UUID, email, token string) (*models.Invitation, error) {
	return s.accept(ctx, userID, email, `i.token = $1`, token)
}

// accept adds the membership rows and marks the invitation accepted in one
// transaction. Any failure leaves the invitation pending.
func (s *InvitationService) accept(ctx context.Context, userID uuid.UUID, email, where string, arg any) (*models.Invitation, error) {
	now := s.now()

	var inv *models.Invitation
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		inv, err = scanInvitation(tx.QueryRow(ctx, invitationSelect+` WHERE `+where+` FOR UPDATE OF i`, arg))
		if err != nil {
			return notFound(err, ErrInvitationNotFound)
		}
		if err := checkRespondable(inv, email, now); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO tenant_users (tenant_id, user_id, role_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, user_id) DO NOTHING
		`, inv.TenantID, userID, inv.RoleID)
		if err != nil {
			return fmt.Errorf("failed to add tenant member: %w", err)
		}

		if inv.ProjectID != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO project_members (project_id, user_id, role)
				VALUES ($1, $2, $3)
				ON CONFLICT (project_id, user_id) DO NOTHING
			`, *inv.ProjectID, userID, models.ProjectRoleMember)
			if err != nil {
				return fmt.Errorf("failed to add project member: %w", err)
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE invitations
			SET status = $1, accepted_by = $2, accepted_at = $3, updated_at = NOW()
			WHERE id = $4
		`, models.InvitationAccepted, userID, now, inv.ID)
		if err != nil {
			return fmt.Errorf("failed to mark invitation accepted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.Status = models.InvitationAccepted
	inv.AcceptedBy = &userID
	inv.AcceptedAt = &now

	target := inv.TenantName
	if inv.ProjectName != nil {
		target = *inv.ProjectName
	}
	s.notifier.NotifyBestEffort(ctx, NotifyParams{
		TenantID:    inv.TenantID,
		RecipientID: inv.InvitedBy,
		ActorID:     userID,
		Type:        models.NotificationMemberAdded,
		Title:       "Invitation accepted",
		Message:     fmt.Sprintf("%s joined %s", inv.Email, target),
		ActionURL:   "/users",
	})

	return inv, nil
}

// Reject is the invitee declining a pending invitation.
func (s *InvitationService) Reject(ctx context.Context, email string, id uuid.UUID) (*models.Invitation, error) {
	inv, err := scanInvitation(s.db.Pool.QueryRow(ctx, invitationSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrInvitationNotFound)
	}
	if err := checkRespondable(inv, email, s.now()); err != nil {
		return nil, err
	}

	if err := s.setStatusFromPending(ctx, inv.ID, models.InvitationRejected); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationRejected
	return inv, nil
}

// Cancel withdraws a pending invitation. Expired pending invitations can be
// cancelled as well.
func (s *InvitationService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	inv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitationPending {
		return nil, ErrInvitationNotPending
	}

	if err := s.setStatusFromPending(ctx, inv.ID, models.InvitationCancelled); err != nil {
		return nil, err
	}
	inv.Status = models.InvitationCancelled
	return inv, nil
}

func (s *InvitationService) setStatusFromPending(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE invitations SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, status, id, models.InvitationPending)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationNotPending
	}
	return nil
}

// Resend emails the invitation again with a fresh expiry. The new expiry is
// only stored once the email went out; a send failure leaves it unchanged.
func (s *InvitationService) Resend(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	inv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitationPending {
		return nil, ErrInvitationNotPending
	}

	expiresAt := s.now().Add(s.cfg.TTL)
	email := s.invitationEmail(inv)
	email.ExpiresAt = expiresAt
	if err := s.mailer.SendInvitation(ctx, email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvitationSendFailed, err)
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE invitations SET expires_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, expiresAt, inv.ID, models.InvitationPending)
	if err != nil {
		return nil, fmt.Errorf("failed to extend invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInvitationNotPending
	}

	inv.ExpiresAt = expiresAt
	return inv, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
