package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationRejected  = "rejected"
	InvitationCancelled = "cancelled"
	// InvitationExpired is never stored. It is derived from ExpiresAt.
	InvitationExpired = "expired"
)

type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	Email      string     `json:"email"`
	Token      string     `json:"-"`
	RoleID     uuid.UUID  `json:"role_id"`
	Role       string     `json:"role"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty"`
	InvitedBy  uuid.UUID  `json:"invited_by"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedBy *uuid.UUID `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	TenantName  string  `json:"tenant_name,omitempty"`
	ProjectName *string `json:"project_name,omitempty"`
	InviterName string  `json:"inviter_name,omitempty"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// EffectiveStatus reports the stored status, except that a pending invitation
// past its expiry reads as expired.
func (i *Invitation) EffectiveStatus(now time.Time) string {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}

// IsActive reports whether the invitation is pending and not yet expired.
func (i *Invitation) IsActive(now time.Time) bool {
	return i.EffectiveStatus(now) == InvitationPending
}

func (i *Invitation) IsProjectInvitation() bool {
	return i.ProjectID != nil
}
