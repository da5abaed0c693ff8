package models

import (
	"time"

	"github.com/google/uuid"
)

type TimeEntry struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	UserID          uuid.UUID  `json:"user_id"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`
	TaskID          *uuid.UUID `json:"task_id,omitempty"`
	TimesheetID     *uuid.UUID `json:"timesheet_id,omitempty"`
	InvoiceID       *uuid.UUID `json:"invoice_id,omitempty"`
	Description     string     `json:"description"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Billable        bool       `json:"billable"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (e *TimeEntry) IsRunning() bool {
	return e.EndedAt == nil
}

func (e *TimeEntry) Hours() float64 {
	return MinutesToHours(e.DurationMinutes)
}

// DurationMinutesBetween rounds to the nearest whole minute and never goes negative.
func DurationMinutesBetween(start, end time.Time) int {
	d := end.Sub(start).Round(time.Minute)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

func MinutesToHours(minutes int) float64 {
	return roundHours(float64(minutes) / 60)
}

func roundHours(h float64) float64 {
	return float64(int64(h*100+0.5)) / 100
}
