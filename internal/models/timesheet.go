package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TimesheetDraft     = "draft"
	TimesheetSubmitted = "submitted"
	TimesheetApproved  = "approved"
	TimesheetRejected  = "rejected"
)

// RegularHoursPerWeek is the threshold above which hours count as overtime.
const RegularHoursPerWeek = 40.0

type Timesheet struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	UserID          uuid.UUID  `json:"user_id"`
	WeekStart       time.Time  `json:"week_start"`
	WeekEnd         time.Time  `json:"week_end"`
	Status          string     `json:"status"`
	TotalHours      float64    `json:"total_hours"`
	BillableHours   float64    `json:"billable_hours"`
	RegularHours    float64    `json:"regular_hours"`
	OvertimeHours   float64    `json:"overtime_hours"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Entries []TimeEntry `json:"entries,omitempty"`
}

// IsEditable reports whether the owner may still change linked entries.
func (t *Timesheet) IsEditable() bool {
	return t.Status == TimesheetDraft
}

// CanReopen reports whether an approver may send the timesheet back to draft.
func (t *Timesheet) CanReopen() bool {
	return t.Status == TimesheetApproved || t.Status == TimesheetRejected
}

// WeekBounds returns the Monday and Sunday (date only, UTC) of the week containing d.
func WeekBounds(d time.Time) (time.Time, time.Time) {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

type TimesheetHours struct {
	Total    float64
	Billable float64
	Regular  float64
	Overtime float64
}

// SplitHours derives the timesheet aggregates from summed entry minutes.
func SplitHours(totalMinutes, billableMinutes int) TimesheetHours {
	total := MinutesToHours(totalMinutes)
	h := TimesheetHours{
		Total:    total,
		Billable: MinutesToHours(billableMinutes),
		Regular:  min(total, RegularHoursPerWeek),
	}
	h.Overtime = roundHours(max(total-RegularHoursPerWeek, 0))
	return h
}
