package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PayrollDraft    = "draft"
	PayrollApproved = "approved"
	PayrollPaid     = "paid"
)

type PayrollBatch struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Number      string        `json:"number"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Status      string        `json:"status"`
	TotalHours  float64       `json:"total_hours"`
	TotalAmount float64       `json:"total_amount"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	ApprovedBy  *uuid.UUID    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Items       []PayrollItem `json:"items,omitempty"`
}

type PayrollItem struct {
	ID         uuid.UUID `json:"id"`
	BatchID    uuid.UUID `json:"batch_id"`
	UserID     uuid.UUID `json:"user_id"`
	Hours      float64   `json:"hours"`
	HourlyRate float64   `json:"hourly_rate"`
	Amount     float64   `json:"amount"`
}
