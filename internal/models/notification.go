package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTaskAssigned      = "task_assigned"
	NotificationTaskCompleted     = "task_completed"
	NotificationProjectUpdated    = "project_updated"
	NotificationProjectInvitation = "project_invitation"
	NotificationMemberAdded       = "member_added"
	NotificationTimesheetApproved = "timesheet_approved"
	NotificationTimesheetRejected = "timesheet_rejected"
	NotificationPaymentReceived   = "payment_received"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	UserID    uuid.UUID  `json:"user_id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ActionURL string     `json:"action_url"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
