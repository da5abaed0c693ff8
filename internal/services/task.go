package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, tenant_id, project_id, title, description, status, priority, assignee_id, created_by,
	estimated_hours, actual_hours, due_date, completed_at, created_at, updated_at`

type TaskInput struct {
	Title          string
	Description    string
	Status         string
	Priority       string
	AssigneeID     *uuid.UUID
	EstimatedHours *float64
	DueDate        *time.Time
}

type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	AssigneeID     *uuid.UUID
	ClearAssignee  bool
	EstimatedHours *float64
	DueDate        *time.Time
}

func (u TaskUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Priority == nil &&
		u.AssigneeID == nil && !u.ClearAssignee && u.EstimatedHours == nil && u.DueDate == nil
}

type TaskFilter struct {
	Status     string
	AssigneeID *uuid.UUID
}

type TaskService struct {
	db       *database.DB
	notifier Notifier
	now      func() time.Time
}

func NewTaskService(db *database.DB, notifier Notifier) *TaskService {
	return &TaskService{db: db, notifier: notifier, now: time.Now}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.CreatedBy, &t.EstimatedHours, &t.ActualHours, &t.DueDate, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskService) List(ctx context.Context, tenantID, projectID uuid.UUID, f TaskFilter, page models.Page) ([]models.Task, int, error) {
	const where = `
		WHERE tenant_id = $1 AND project_id = $2
		  AND ($3 = '' OR status = $3)
		  AND ($4::uuid IS NULL OR assignee_id = $4)`

	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where,
		tenantID, projectID, f.Status, f.AssigneeID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+where+`
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`, tenantID, projectID, f.Status, f.AssigneeID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, rows.Err()
}

func (s *TaskService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	t, err := scanTask(s.db.Pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return t, nil
}

func checkAssignee(ctx context.Context, q database.Querier, tenantID uuid.UUID, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tenant_users WHERE tenant_id = $1 AND user_id = $2)
	`, tenantID, *assigneeID).Scan(&ok)
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !ok {
		return ErrMemberNotFound
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, tenantID, projectID, creatorID uuid.UUID, in TaskInput) (*models.Task, error) {
	if in.Status == "" {
		in.Status = models.TaskStatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskStatus(in.Status) || !models.ValidTaskPriority(in.Priority) {
		return nil, ErrInvalidStatus
	}
	if err := checkAssignee(ctx, s.db.Pool, tenantID, in.AssigneeID); err != nil {
		return nil, err
	}

	var completedAt *time.Time
	if in.Status == models.TaskStatusDone {
		now := s.now()
		completedAt = &now
	}

	t, err := scanTask(s.db.Pool.QueryRow(ctx, `
		INSERT INTO tasks (tenant_id, project_id, title, description, status, priority, assignee_id,
			created_by, estimated_hours, due_date, completed_at)
		SELECT $1, p.id, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM projects p WHERE p.id = $2 AND p.tenant_id = $1
		RETURNING `+taskColumns,
		tenantID, projectID, in.Title, in.Description, in.Status, in.Priority, in.AssigneeID,
		creatorID, in.EstimatedHours, in.DueDate, completedAt))
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	if t.AssigneeID != nil {
		s.notifyAssigned(ctx, t, creatorID)
	}
	return t, nil
}

// Update applies the changes under a row lock. Entering done stamps
// completed_at; leaving done clears it.
func (s *TaskService) Update(ctx context.Context, actorID, tenantID, id uuid.UUID, upd TaskUpdate) (*models.Task, error) {
	if upd.empty() {
		return nil, ErrNoFieldsToUpdate
	}
	if upd.Status != nil && !models.ValidTaskStatus(*upd.Status) {
		return nil, ErrInvalidStatus
	}
	if upd.Priority != nil && !models.ValidTaskPriority(*upd.Priority) {
		return nil, ErrInvalidStatus
	}

	var prev, next *models.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		prev, err = scanTask(tx.QueryRow(ctx, `
			SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND tenant_id = $2 FOR UPDATE
		`, id, tenantID))
		if err != nil {
			return notFound(err, ErrTaskNotFound)
		}
		if err := checkAssignee(ctx, tx, tenantID, upd.AssigneeID); err != nil {
			return err
		}

		t := applyTaskUpdate(*prev, upd, s.now())
		next, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks SET
				title = $1, description = $2, status = $3, priority = $4, assignee_id = $5,
				estimated_hours = $6, due_date = $7, completed_at = $8, updated_at = NOW()
			WHERE id = $9
			RETURNING `+taskColumns,
			t.Title, t.Description, t.Status, t.Priority, t.AssigneeID,
			t.EstimatedHours, t.DueDate, t.CompletedAt, t.ID))
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if next.AssigneeID != nil && (prev.AssigneeID == nil || *prev.AssigneeID != *next.AssigneeID) {
		s.notifyAssigned(ctx, next, actorID)
	}
	if next.Status == models.TaskStatusDone && prev.Status != models.TaskStatusDone {
		s.notifier.NotifyBestEffort(ctx, NotifyParams{
			TenantID:    next.TenantID,
			RecipientID: next.CreatedBy,
			ActorID:     actorID,
			Type:        models.NotificationTaskCompleted,
			Title:       "Task completed",
			Message:     fmt.Sprintf("%s was completed", next.Title),
			ActionURL:   fmt.Sprintf("/projects/%s/tasks/%s", next.ProjectID, next.ID),
		})
	}
	return next, nil
}

func applyTaskUpdate(t models.Task, upd TaskUpdate, now time.Time) models.Task {
	wasDone := t.Status == models.TaskStatusDone
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.ClearAssignee {
		t.AssigneeID = nil
	} else if upd.AssigneeID != nil {
		t.AssigneeID = upd.AssigneeID
	}
	if upd.EstimatedHours != nil {
		t.EstimatedHours = upd.EstimatedHours
	}
	if upd.DueDate != nil {
		t.DueDate = upd.DueDate
	}

	switch {
	case t.Status == models.TaskStatusDone && !wasDone:
		t.CompletedAt = &now
	case t.Status != models.TaskStatusDone:
		t.CompletedAt = nil
	}
	return t
}

func (s *TaskService) notifyAssigned(ctx context.Context, t *models.Task, actorID uuid.UUID) {
	s.notifier.NotifyBestEffort(ctx, NotifyParams{
		TenantID:    t.TenantID,
		RecipientID: *t.AssigneeID,
		ActorID:     actorID,
		Type:        models.NotificationTaskAssigned,
		Title:       "Task assigned",
		Message:     fmt.Sprintf("You were assigned to %s", t.Title),
		ActionURL:   fmt.Sprintf("/projects/%s/tasks/%s", t.ProjectID, t.ID),
	})
}

func (s *TaskService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// recomputeTaskHours sets actual_hours from the task's finished entries.
func recomputeTaskHours(ctx context.Context, q database.Querier, taskID *uuid.UUID) error {
	if taskID == nil {
		return nil
	}
	_, err := q.Exec(ctx, `
		UPDATE tasks SET
			actual_hours = ROUND(COALESCE((
				SELECT SUM(duration_minutes) FROM time_entries
				WHERE task_id = $1 AND ended_at IS NOT NULL
			), 0) / 60.0, 2),
			updated_at = NOW()
		WHERE id = $1
	`, *taskID)
	if err != nil {
		return fmt.Errorf("failed to recompute task hours: %w", err)
	}
	return nil
}
