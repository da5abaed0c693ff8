package dto

import "github.com/google/uuid"

type CreateProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ClientName  string   `json:"client_name"`
	HourlyRate  float64  `json:"hourly_rate"`
	BudgetHours *float64 `json:"budget_hours"`
}

type UpdateProjectRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	ClientName  *string  `json:"client_name"`
	Status      *string  `json:"status"`
	HourlyRate  *float64 `json:"hourly_rate"`
	BudgetHours *float64 `json:"budget_hours"`
}

type CreateTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	DueDate        *Date      `json:"due_date"`
}

// UpdateTaskRequest changes only the fields present. Unassign clears the
// assignee.
type UpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	Unassign       bool       `json:"unassign"`
	EstimatedHours *float64   `json:"estimated_hours"`
	DueDate        *Date      `json:"due_date"`
}
