package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartTimerRequest struct {
	Description string `json:"description"`
	Billable    *bool  `json:"billable"`
}

type CreateTimeEntryRequest struct {
	TaskID      *uuid.UUID `json:"task_id"`
	ProjectID   *uuid.UUID `json:"project_id"`
	Description string     `json:"description"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
	Billable    *bool      `json:"billable"`
}

type UpdateTimeEntryRequest struct {
	Description *string    `json:"description"`
	StartedAt   *time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Billable    *bool      `json:"billable"`
}

type CreateTimesheetRequest struct {
	WeekStart Date `json:"week_start"`
}

type LinkEntriesRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids"`
}

type RejectTimesheetRequest struct {
	Reason string `json:"reason"`
}
