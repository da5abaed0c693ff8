package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/policy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const timeEntryColumns = `id, tenant_id, user_id, project_id, task_id, timesheet_id, invoice_id, description,
	started_at, ended_at, duration_minutes, billable, created_at, updated_at`

type TimeEntryInput struct {
	ProjectID   *uuid.UUID
	TaskID      *uuid.UUID
	Description string
	StartedAt   time.Time
	EndedAt     time.Time
	Billable    bool
}

type TimeEntryUpdate struct {
	Description *string
	StartedAt   *time.Time
	EndedAt     *time.Time
	Billable    *bool
}

func (u TimeEntryUpdate) empty() bool {
	return u.Description == nil && u.StartedAt == nil && u.EndedAt == nil && u.Billable == nil
}

type TimeEntryFilter struct {
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	TaskID    *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type TimeEntryService struct {
	db  *database.DB
	now func() time.Time
}

func NewTimeEntryService(db *database.DB) *TimeEntryService {
	return &TimeEntryService{db: db, now: time.Now}
}

func scanTimeEntry(row pgx.Row) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := row.Scan(&e.ID, &e.TenantID, &e.UserID, &e.ProjectID, &e.TaskID, &e.TimesheetID, &e.InvoiceID,
		&e.Description, &e.StartedAt, &e.EndedAt, &e.DurationMinutes, &e.Billable, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectTimeEntries(rows pgx.Rows) ([]models.TimeEntry, error) {
	defer rows.Close()
	var list []models.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Start opens a running entry on the task. The partial unique index on
// running entries rejects a second timer for the same user.
func (s *TimeEntryService) Start(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID, description string, billable bool) (*models.TimeEntry, error) {
	e, err := scanTimeEntry(s.db.Pool.QueryRow(ctx, `
		INSERT INTO time_entries (tenant_id, user_id, project_id, task_id, description, started_at, billable)
		SELECT t.tenant_id, $2, t.project_id, t.id, $3, $4, $5
		FROM tasks t WHERE t.id = $1 AND t.tenant_id = $6
		RETURNING `+timeEntryColumns,
		taskID, actor.UserID, description, s.now(), billable, actor.TenantID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTimerRunning
		}
		return nil, notFound(err, ErrTaskNotFound)
	}
	return e, nil
}

// Stop closes the caller's running entry on the task and refreshes the
// derived hours.
func (s *TimeEntryService) Stop(ctx context.Context, actor *models.TenantUser, taskID uuid.UUID) (*models.TimeEntry, error) {
	now := s.now()

	var entry *models.TimeEntry
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		running, err := scanTimeEntry(tx.QueryRow(ctx, `
			SELECT `+timeEntryColumns+` FROM time_entries
			WHERE tenant_id = $1 AND user_id = $2 AND task_id = $3 AND ended_at IS NULL
			FOR UPDATE
		`, actor.TenantID, actor.UserID, taskID))
		if err != nil {
			return notFound(err, ErrNoRunningTimer)
		}

		entry, err = scanTimeEntry(tx.QueryRow(ctx, `
			UPDATE time_entries SET ended_at = $1, duration_minutes = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+timeEntryColumns,
			now, models.DurationMinutesBetween(running.StartedAt, now), running.ID))
		if err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}
		return refreshDerivedHours(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the caller's entries. Members allowed to approve timesheets may
// look at other users' entries through f.UserID, or at everyone's by leaving
// it nil.
func (s *TimeEntryService) List(ctx context.Context, actor *models.TenantUser, f TimeEntryFilter, page models.Page) ([]models.TimeEntry, int, error) {
	if !policy.Allow(actor, policy.ApproveTimesheets) {
		f.UserID = &actor.UserID
	}

	const where = `
		WHERE tenant_id = $1
		  AND ($2::uuid IS NULL OR user_id = $2)
		  AND ($3::uuid IS NULL OR project_id = $3)
		  AND ($4::uuid IS NULL OR task_id = $4)
		  AND ($5::timestamptz IS NULL OR started_at >= $5)
		  AND ($6::timestamptz IS NULL OR started_at < $6)`
	args := []any{actor.TenantID, f.UserID, f.ProjectID, f.TaskID, f.From, f.To}

	var total int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM time_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count time entries: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT `+timeEntryColumns+` FROM time_entries`+where+`
		ORDER BY started_at DESC
		LIMIT $7 OFFSET $8
	`, append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list time entries: %w", err)
	}
	list, err := collectTimeEntries(rows)
	return list, total, err
}

func (s *TimeEntryService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.TimeEntry, error) {
	e, err := scanTimeEntry(s.db.Pool.QueryRow(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrTimeEntryNotFound)
	}
	return e, nil
}

// Create records a finished entry. When a task is given the project is taken
// from the task.
func (s *TimeEntryService) Create(ctx context.Context, actor *models.TenantUser, in TimeEntryInput) (*models.TimeEntry, error) {
	if !in.EndedAt.After(in.StartedAt) {
		return nil, ErrInvalidTimeRange
	}

	var entry *models.TimeEntry
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		projectID := in.ProjectID
		if in.TaskID != nil {
			var pid uuid.UUID
			err := tx.QueryRow(ctx, `SELECT project_id FROM tasks WHERE id = $1 AND tenant_id = $2`,
				*in.TaskID, actor.TenantID).Scan(&pid)
			if err != nil {
				return notFound(err, ErrTaskNotFound)
			}
			projectID = &pid
		} else if projectID != nil {
			var ok bool
			err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND tenant_id = $2)`,
				*projectID, actor.TenantID).Scan(&ok)
			if err != nil {
				return fmt.Errorf("failed to check project: %w", err)
			}
			if !ok {
				return ErrProjectNotFound
			}
		}

		var err error
		entry, err = scanTimeEntry(tx.QueryRow(ctx, `
			INSERT INTO time_entries (tenant_id, user_id, project_id, task_id, description,
				started_at, ended_at, duration_minutes, billable)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+timeEntryColumns,
			actor.TenantID, actor.UserID, projectID, in.TaskID, in.Description,
			in.StartedAt, in.EndedAt, models.DurationMinutesBetween(in.StartedAt, in.EndedAt), in.Billable))
		if err != nil {
			return fmt.Errorf("failed to create time entry: %w", err)
		}
		return refreshDerivedHours(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// lockForEdit loads the entry under a row lock and checks the actor may
// change it. Entries on a non-draft timesheet or already invoiced are locked.
func lockForEdit(ctx context.Context, tx pgx.Tx, actor *models.TenantUser, id uuid.UUID) (*models.TimeEntry, error) {
	e, err := scanTimeEntry(tx.QueryRow(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries WHERE id = $1 AND tenant_id = $2 FOR UPDATE
	`, id, actor.TenantID))
	if err != nil {
		return nil, notFound(err, ErrTimeEntryNotFound)
	}
	if !policy.CanEditTimeEntry(actor, e) {
		return nil, ErrForbidden
	}
	if e.InvoiceID != nil {
		return nil, ErrEntryLocked
	}
	if e.TimesheetID != nil {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM timesheets WHERE id = $1 FOR SHARE`, *e.TimesheetID).Scan(&status)
		if err != nil {
			return nil, fmt.Errorf("failed to load timesheet: %w", err)
		}
		if status != models.TimesheetDraft {
			return nil, ErrEntryLocked
		}
	}
	return e, nil
}

func (s *TimeEntryService) Update(ctx context.Context, actor *models.TenantUser, id uuid.UUID, upd TimeEntryUpdate) (*models.TimeEntry, error) {
	if upd.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	var entry *models.TimeEntry
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := lockForEdit(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if upd.Description != nil {
			e.Description = *upd.Description
		}
		if upd.Billable != nil {
			e.Billable = *upd.Billable
		}
		if upd.StartedAt != nil {
			e.StartedAt = *upd.StartedAt
		}
		if upd.EndedAt != nil {
			e.EndedAt = upd.EndedAt
		}
		if e.EndedAt != nil {
			if !e.EndedAt.After(e.StartedAt) {
				return ErrInvalidTimeRange
			}
			e.DurationMinutes = models.DurationMinutesBetween(e.StartedAt, *e.EndedAt)
		}

		entry, err = scanTimeEntry(tx.QueryRow(ctx, `
			UPDATE time_entries SET
				description = $1, billable = $2, started_at = $3, ended_at = $4,
				duration_minutes = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING `+timeEntryColumns,
			e.Description, e.Billable, e.StartedAt, e.EndedAt, e.DurationMinutes, e.ID))
		if err != nil {
			return fmt.Errorf("failed to update time entry: %w", err)
		}
		return refreshDerivedHours(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *TimeEntryService) Delete(ctx context.Context, actor *models.TenantUser, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		e, err := lockForEdit(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to delete time entry: %w", err)
		}
		return refreshDerivedHours(ctx, tx, e)
	})
}

// refreshDerivedHours recomputes the aggregates that depend on e.
func refreshDerivedHours(ctx context.Context, q database.Querier, e *models.TimeEntry) error {
	if err := recomputeTaskHours(ctx, q, e.TaskID); err != nil {
		return err
	}
	return recomputeTimesheetHours(ctx, q, e.TimesheetID)
}
