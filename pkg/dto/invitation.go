package dto

import (
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
)

type CreateInvitationRequest struct {
	Email     string     `json:"email"`
	RoleID    uuid.UUID  `json:"role_id"`
	ProjectID *uuid.UUID `json:"project_id"`
}

type InvitationResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	TenantName  string     `json:"tenant_name,omitempty"`
	Email       string     `json:"email"`
	RoleID      uuid.UUID  `json:"role_id"`
	Role        string     `json:"role"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	ProjectName *string    `json:"project_name,omitempty"`
	InvitedBy   uuid.UUID  `json:"invited_by"`
	InviterName string     `json:"inviter_name,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedBy  *uuid.UUID `json:"accepted_by,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewInvitationResponse reports the effective status at now, so a lapsed
// pending invitation reads as expired.
func NewInvitationResponse(inv *models.Invitation, now time.Time) InvitationResponse {
	return InvitationResponse{
		ID:          inv.ID,
		TenantID:    inv.TenantID,
		TenantName:  inv.TenantName,
		Email:       inv.Email,
		RoleID:      inv.RoleID,
		Role:        inv.Role,
		ProjectID:   inv.ProjectID,
		ProjectName: inv.ProjectName,
		InvitedBy:   inv.InvitedBy,
		InviterName: inv.InviterName,
		Status:      inv.EffectiveStatus(now),
		ExpiresAt:   inv.ExpiresAt,
		AcceptedBy:  inv.AcceptedBy,
		AcceptedAt:  inv.AcceptedAt,
		CreatedAt:   inv.CreatedAt,
	}
}

func NewInvitationResponses(invs []models.Invitation, now time.Time) []InvitationResponse {
	out := make([]InvitationResponse, len(invs))
	for i := range invs {
		out[i] = NewInvitationResponse(&invs[i], now)
	}
	return out
}

// InvitationPreviewResponse is what an unauthenticated holder of the token sees.
type InvitationPreviewResponse struct {
	Email       string    `json:"email"`
	TenantName  string    `json:"tenant_name"`
	ProjectName *string   `json:"project_name,omitempty"`
	Role        string    `json:"role"`
	InviterName string    `json:"inviter_name"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewInvitationPreview(inv *models.Invitation, now time.Time) InvitationPreviewResponse {
	return InvitationPreviewResponse{
		Email:       inv.Email,
		TenantName:  inv.TenantName,
		ProjectName: inv.ProjectName,
		Role:        inv.Role,
		InviterName: inv.InviterName,
		Status:      inv.EffectiveStatus(now),
		ExpiresAt:   inv.ExpiresAt,
	}
}
