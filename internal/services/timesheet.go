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

const timesheetColumns = `id, tenant_id, user_id, week_start, week_end, status, total_hours, billable_hours,
	regular_hours, overtime_hours, submitted_at, approved_by, approved_at, rejection_reason, created_at, updated_at`

type TimesheetFilter struct {
	Status string
	UserID *uuid.UUID
}

type TimesheetService struct {
	db       *database.DB
	notifier Notifier
	now      func() time.Time
}

func NewTimesheetService(db *database.DB, notifier Notifier) *TimesheetService {
	return &TimesheetService{db: db, notifier: notifier, now: time.Now}
}

func scanTimesheet(row pgx.Row) (*models.Timesheet, error) {
	var t models.Timesheet
	err := row.Scan(&t.ID, &t.TenantID, &t.UserID, &t.WeekStart, &t.WeekEnd, &t.Status,
		&t.TotalHours, &t.BillableHours, &t.RegularHours, &t.OvertimeHours,
		&t.SubmittedAt, &t.ApprovedBy, &t.ApprovedAt, &t.RejectionReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create opens a draft timesheet for the week containing weekOf.
func (s *TimesheetService) Create(ctx context.Context, actor *models.TenantUser, weekOf time.Time) (*models.Timesheet, error) {
	start, end := models.WeekBounds(weekOf)

	ts, err := scanTimesheet(s.db.Pool.QueryRow(ctx, `
		INSERT INTO timesheets (tenant_id, user_id, week_start, week_end, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+timesheetColumns,
		actor.TenantID, actor.UserID, start, end, models.TimesheetDraft))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTimesheetExists
		}
		return nil, fmt.Errorf("failed to create timesheet: %w", err)
	}
	return ts, nil
}

// List returns the caller's timesheets; approvers see every member's.
func (s *TimesheetService) List(ctx context.Context, actor *models.TenantUser, f TimesheetFilter, page models.Page) ([]models.Timesheet, int, error) {
	if !policy.Allow(actor, policy.ApproveTimesheets) {
		f.UserID = &actor.UserID
	}

	const where = `
		WHERE tenant_id = $1
		  AND ($2::uuid IS NULL OR user_id = $2)
		  AND ($3 = '' OR status = $3)`

	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM timesheets`+where, actor.TenantID, f.UserID, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count timesheets: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT `+timesheetColumns+` FROM timesheets`+where+`
		ORDER BY week_start DESC
		LIMIT $4 OFFSET $5
	`, actor.TenantID, f.UserID, f.Status, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	var list []models.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *ts)
	}
	return list, total, rows.Err()
}

// Get loads the timesheet with its entries. Timesheets the actor may not view
// are reported as missing.
func (s *TimesheetService) Get(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	ts, err := scanTimesheet(s.db.Pool.QueryRow(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets WHERE id = $1 AND tenant_id = $2
	`, id, actor.TenantID))
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	if !policy.CanViewTimesheet(actor, ts) {
		return nil, ErrTimesheetNotFound
	}

	if ts.Entries, err = listTimesheetEntries(ctx, s.db.Pool, ts.ID); err != nil {
		return nil, err
	}
	return ts, nil
}

func listTimesheetEntries(ctx context.Context, q database.Querier, timesheetID uuid.UUID) ([]models.TimeEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries WHERE timesheet_id = $1 ORDER BY started_at
	`, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheet entries: %w", err)
	}
	return collectTimeEntries(rows)
}

func lockTimesheet(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*models.Timesheet, error) {
	ts, err := scanTimesheet(tx.QueryRow(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets WHERE id = $1 AND tenant_id = $2 FOR UPDATE
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	return ts, nil
}

// lockEditable locks the timesheet and requires the actor to be its owner
// while it is still a draft.
func lockEditable(ctx context.Context, tx pgx.Tx, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	ts, err := lockTimesheet(ctx, tx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditTimesheet(actor, ts) {
		return nil, ErrForbidden
	}
	return ts, nil
}

// LinkEntries attaches finished entries of the owner that started inside the
// timesheet week. Every id must qualify or nothing is linked. Repeated ids
// count once.
func (s *TimesheetService) LinkEntries(ctx context.Context, actor *models.TenantUser, id uuid.UUID, entryIDs []uuid.UUID) (*models.Timesheet, error) {
	entryIDs = uniqueIDs(entryIDs)
	var ts *models.Timesheet
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockEditable(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE time_entries SET timesheet_id = $1, updated_at = NOW()
			WHERE id = ANY($2) AND tenant_id = $3 AND user_id = $4
			  AND ended_at IS NOT NULL
			  AND (timesheet_id IS NULL OR timesheet_id = $1)
			  AND started_at >= $5 AND started_at < $6
		`, locked.ID, entryIDs, locked.TenantID, locked.UserID, locked.WeekStart, locked.WeekEnd.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("failed to link entries: %w", err)
		}
		if tag.RowsAffected() != int64(len(entryIDs)) {
			return ErrTimeEntryNotFound
		}

		ts, err = refreshTimesheet(ctx, tx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *TimesheetService) UnlinkEntry(ctx context.Context, actor *models.TenantUser, id, entryID uuid.UUID) (*models.Timesheet, error) {
	var ts *models.Timesheet
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockEditable(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE time_entries SET timesheet_id = NULL, updated_at = NOW()
			WHERE id = $1 AND timesheet_id = $2
		`, entryID, locked.ID)
		if err != nil {
			return fmt.Errorf("failed to unlink entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrTimeEntryNotFound
		}

		ts, err = refreshTimesheet(ctx, tx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// Submit moves the owner's draft to submitted with freshly computed hours.
func (s *TimesheetService) Submit(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	var ts *models.Timesheet
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockTimesheet(ctx, tx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if locked.UserID != actor.UserID {
			return ErrForbidden
		}
		if locked.Status != models.TimesheetDraft {
			return ErrInvalidTransition
		}

		if _, err := refreshTimesheet(ctx, tx, locked.ID); err != nil {
			return err
		}
		ts, err = scanTimesheet(tx.QueryRow(ctx, `
			UPDATE timesheets SET status = $1, submitted_at = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+timesheetColumns,
			models.TimesheetSubmitted, s.now(), locked.ID))
		if err != nil {
			return fmt.Errorf("failed to submit timesheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *TimesheetService) Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	ts, err := s.review(ctx, actor, id, func(tx pgx.Tx, locked *models.Timesheet) (*models.Timesheet, error) {
		return scanTimesheet(tx.QueryRow(ctx, `
			UPDATE timesheets SET status = $1, approved_by = $2, approved_at = $3,
				rejection_reason = NULL, updated_at = NOW()
			WHERE id = $4
			RETURNING `+timesheetColumns,
			models.TimesheetApproved, actor.UserID, s.now(), locked.ID))
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyBestEffort(ctx, NotifyParams{
		TenantID:    ts.TenantID,
		RecipientID: ts.UserID,
		ActorID:     actor.UserID,
		Type:        models.NotificationTimesheetApproved,
		Title:       "Timesheet approved",
		Message:     fmt.Sprintf("Your timesheet for the week of %s was approved", ts.WeekStart.Format(time.DateOnly)),
		ActionURL:   fmt.Sprintf("/timesheets/%s", ts.ID),
	})
	return ts, nil
}

func (s *TimesheetService) Reject(ctx context.Context, actor *models.TenantUser, id uuid.UUID, reason string) (*models.Timesheet, error) {
	var stored *string
	if reason != "" {
		stored = &reason
	}

	ts, err := s.review(ctx, actor, id, func(tx pgx.Tx, locked *models.Timesheet) (*models.Timesheet, error) {
		return scanTimesheet(tx.QueryRow(ctx, `
			UPDATE timesheets SET status = $1, rejection_reason = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+timesheetColumns,
			models.TimesheetRejected, stored, locked.ID))
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your timesheet for the week of %s was rejected", ts.WeekStart.Format(time.DateOnly))
	if reason != "" {
		message += ": " + reason
	}
	s.notifier.NotifyBestEffort(ctx, NotifyParams{
		TenantID:    ts.TenantID,
		RecipientID: ts.UserID,
		ActorID:     actor.UserID,
		Type:        models.NotificationTimesheetRejected,
		Title:       "Timesheet rejected",
		Message:     message,
		ActionURL:   fmt.Sprintf("/timesheets/%s/edit", ts.ID),
	})
	return ts, nil
}

// review runs an approver decision on a submitted timesheet.
func (s *TimesheetService) review(ctx context.Context, actor *models.TenantUser, id uuid.UUID,
	apply func(tx pgx.Tx, locked *models.Timesheet) (*models.Timesheet, error)) (*models.Timesheet, error) {
	if !policy.Allow(actor, policy.ApproveTimesheets) {
		return nil, ErrForbidden
	}

	var ts *models.Timesheet
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockTimesheet(ctx, tx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if locked.Status != models.TimesheetSubmitted {
			return ErrInvalidTransition
		}
		ts, err = apply(tx, locked)
		if err != nil {
			return fmt.Errorf("failed to review timesheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// Reopen sends an approved or rejected timesheet back to draft. The rejection
// reason is kept so the owner can still see it.
func (s *TimesheetService) Reopen(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error) {
	if !policy.Allow(actor, policy.ApproveTimesheets) {
		return nil, ErrForbidden
	}

	var ts *models.Timesheet
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockTimesheet(ctx, tx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !locked.CanReopen() {
			return ErrInvalidTransition
		}
		ts, err = scanTimesheet(tx.QueryRow(ctx, `
			UPDATE timesheets SET status = $1, submitted_at = NULL, approved_by = NULL,
				approved_at = NULL, updated_at = NOW()
			WHERE id = $2
			RETURNING `+timesheetColumns,
			models.TimesheetDraft, locked.ID))
		if err != nil {
			return fmt.Errorf("failed to reopen timesheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// refreshTimesheet recomputes the hour aggregates from the linked finished
// entries and returns the updated row.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func refreshTimesheet(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Timesheet, error) {
	var totalMinutes, billableMinutes int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0),
		       COALESCE(SUM(duration_minutes) FILTER (WHERE billable), 0)
		FROM time_entries
		WHERE timesheet_id = $1 AND ended_at IS NOT NULL
	`, id).Scan(&totalMinutes, &billableMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to sum timesheet entries: %w", err)
	}

	h := models.SplitHours(totalMinutes, billableMinutes)
	ts, err := scanTimesheet(q.QueryRow(ctx, `
		UPDATE timesheets SET total_hours = $1, billable_hours = $2, regular_hours = $3,
			overtime_hours = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+timesheetColumns,
		h.Total, h.Billable, h.Regular, h.Overtime, id))
	if err != nil {
		return nil, fmt.Errorf("failed to update timesheet hours: %w", err)
	}
	return ts, nil
}

func recomputeTimesheetHours(ctx context.Context, q database.Querier, timesheetID *uuid.UUID) error {
	if timesheetID == nil {
		return nil
	}
	_, err := refreshTimesheet(ctx, q, *timesheetID)
	return err
}
