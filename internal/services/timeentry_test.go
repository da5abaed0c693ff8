package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timeEntryCols = []string{"id", "tenant_id", "user_id", "project_id", "task_id", "timesheet_id", "invoice_id",
	"description", "started_at", "ended_at", "duration_minutes", "billable", "created_at", "updated_at"}

func setupTimeEntryService(t *testing.T) (*TimeEntryService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	svc := NewTimeEntryService(&database.DB{Pool: mock})
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func timeEntryRow(e models.TimeEntry) *pgxmock.Rows {
	return pgxmock.NewRows(timeEntryCols).AddRow(e.ID, e.TenantID, e.UserID, e.ProjectID, e.TaskID, e.TimesheetID,
		e.InvoiceID, e.Description, e.StartedAt, e.EndedAt, e.DurationMinutes, e.Billable, fixedNow, fixedNow)
}

func member(tenantID uuid.UUID, role string) *models.TenantUser {
	return &models.TenantUser{ID: uuid.New(), TenantID: tenantID, UserID: uuid.New(), Role: role}
}

func TestTimeEntryService_Start_SecondTimer(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID := uuid.New()

	mock.ExpectQuery(`INSERT INTO time_entries .+ FROM tasks t WHERE t.id = \$1`).
		WithArgs(taskID, actor.UserID, "", fixedNow, true, actor.TenantID).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.Start(context.Background(), actor, taskID, "", true)

	assert.ErrorIs(t, err, ErrTimerRunning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Start_UnknownTask(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID := uuid.New()

	mock.ExpectQuery(`INSERT INTO time_entries`).
		WithArgs(taskID, actor.UserID, "notes", fixedNow, false, actor.TenantID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Start(context.Background(), actor, taskID, "notes", false)

	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Stop(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID := uuid.New()

	running := models.TimeEntry{
		ID: uuid.New(), TenantID: actor.TenantID, UserID: actor.UserID, TaskID: &taskID,
		StartedAt: fixedNow.Add(-90 * time.Minute), Billable: true,
	}
	stopped := running
	stopped.EndedAt = &fixedNow
	stopped.DurationMinutes = 90

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM time_entries .+ ended_at IS NULL FOR UPDATE`).
		WithArgs(actor.TenantID, actor.UserID, taskID).
		WillReturnRows(timeEntryRow(running))
	mock.ExpectQuery(`UPDATE time_entries SET ended_at = \$1, duration_minutes = \$2`).
		WithArgs(fixedNow, 90, running.ID).
		WillReturnRows(timeEntryRow(stopped))
	mock.ExpectExec(`UPDATE tasks SET actual_hours`).
		WithArgs(taskID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := svc.Stop(context.Background(), actor, taskID)

	require.NoError(t, err)
	assert.Equal(t, 90, got.DurationMinutes)
	assert.Equal(t, 1.5, got.Hours())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Stop_NothingRunning(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`ended_at IS NULL FOR UPDATE`).
		WithArgs(actor.TenantID, actor.UserID, taskID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Stop(context.Background(), actor, taskID)

	assert.ErrorIs(t, err, ErrNoRunningTimer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Create_InvalidRange(t *testing.T) {
	svc, _ := setupTimeEntryService(t)

	_, err := svc.Create(context.Background(), member(uuid.New(), models.RoleMember), TimeEntryInput{
		StartedAt: fixedNow,
		EndedAt:   fixedNow,
	})

	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestTimeEntryService_Create_TakesProjectFromTask(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID, projectID := uuid.New(), uuid.New()
	start := fixedNow.Add(-2 * time.Hour)

	created := models.TimeEntry{
		ID: uuid.New(), TenantID: actor.TenantID, UserID: actor.UserID, ProjectID: &projectID, TaskID: &taskID,
		StartedAt: start, EndedAt: &fixedNow, DurationMinutes: 120, Billable: true,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT project_id FROM tasks`).
		WithArgs(taskID, actor.TenantID).
		WillReturnRows(pgxmock.NewRows([]string{"project_id"}).AddRow(projectID))
	mock.ExpectQuery(`INSERT INTO time_entries`).
		WithArgs(actor.TenantID, actor.UserID, &projectID, &taskID, "", start, fixedNow, 120, true).
		WillReturnRows(timeEntryRow(created))
	mock.ExpectExec(`UPDATE tasks SET actual_hours`).
		WithArgs(taskID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := svc.Create(context.Background(), actor, TimeEntryInput{
		TaskID: &taskID, StartedAt: start, EndedAt: fixedNow, Billable: true,
	})

	require.NoError(t, err)
	assert.Equal(t, &projectID, got.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Update_LockedBySubmittedTimesheet(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	timesheetID := uuid.New()
	entry := models.TimeEntry{
		ID: uuid.New(), TenantID: actor.TenantID, UserID: actor.UserID, TimesheetID: &timesheetID,
		StartedAt: fixedNow.Add(-time.Hour), EndedAt: &fixedNow, DurationMinutes: 60,
	}
	desc := "changed"

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM time_entries WHERE id = \$1 AND tenant_id = \$2 FOR UPDATE`).
		WithArgs(entry.ID, actor.TenantID).
		WillReturnRows(timeEntryRow(entry))
	mock.ExpectQuery(`SELECT status FROM timesheets WHERE id = \$1 FOR SHARE`).
		WithArgs(timesheetID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.TimesheetSubmitted))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), actor, entry.ID, TimeEntryUpdate{Description: &desc})

	assert.ErrorIs(t, err, ErrEntryLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Update_OtherMembersEntry(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	entry := models.TimeEntry{ID: uuid.New(), TenantID: actor.TenantID, UserID: uuid.New(), StartedAt: fixedNow}
	billable := false

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(entry.ID, actor.TenantID).
		WillReturnRows(timeEntryRow(entry))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), actor, entry.ID, TimeEntryUpdate{Billable: &billable})

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Update_RecomputesTaskAndTimesheet(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	taskID, timesheetID := uuid.New(), uuid.New()
	start := fixedNow.Add(-time.Hour)
	entry := models.TimeEntry{
		ID: uuid.New(), TenantID: actor.TenantID, UserID: actor.UserID, TaskID: &taskID, TimesheetID: &timesheetID,
		StartedAt: start, EndedAt: &fixedNow, DurationMinutes: 60, Billable: true,
	}
	newStart := fixedNow.Add(-3 * time.Hour)
	updated := entry
	updated.StartedAt = newStart
	updated.DurationMinutes = 180

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(entry.ID, actor.TenantID).
		WillReturnRows(timeEntryRow(entry))
	mock.ExpectQuery(`SELECT status FROM timesheets`).
		WithArgs(timesheetID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.TimesheetDraft))
	mock.ExpectQuery(`UPDATE time_entries SET`).
		WithArgs("", true, newStart, &fixedNow, 180, entry.ID).
		WillReturnRows(timeEntryRow(updated))
	mock.ExpectExec(`UPDATE tasks SET actual_hours`).
		WithArgs(taskID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(duration_minutes\), 0\)`).
		WithArgs(timesheetID).
		WillReturnRows(pgxmock.NewRows([]string{"total", "billable"}).AddRow(180, 180))
	mock.ExpectQuery(`UPDATE timesheets SET total_hours`).
		WithArgs(3.0, 3.0, 3.0, 0.0, timesheetID).
		WillReturnRows(timesheetRow(models.Timesheet{ID: timesheetID, TenantID: actor.TenantID, UserID: actor.UserID, Status: models.TimesheetDraft}))
	mock.ExpectCommit()

	got, err := svc.Update(context.Background(), actor, entry.ID, TimeEntryUpdate{StartedAt: &newStart})

	require.NoError(t, err)
	assert.Equal(t, 180, got.DurationMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_Delete_InvoicedEntryIsLocked(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleAdmin)
	invoiceID := uuid.New()
	entry := models.TimeEntry{ID: uuid.New(), TenantID: actor.TenantID, UserID: uuid.New(), InvoiceID: &invoiceID, StartedAt: fixedNow}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(entry.ID, actor.TenantID).
		WillReturnRows(timeEntryRow(entry))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), actor, entry.ID)

	assert.ErrorIs(t, err, ErrEntryLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEntryService_List_MembersSeeOnlyOwnEntries(t *testing.T) {
	svc, mock := setupTimeEntryService(t)
	actor := member(uuid.New(), models.RoleMember)
	other := uuid.New()
	none := (*uuid.UUID)(nil)
	noTime := (*time.Time)(nil)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM time_entries`).
		WithArgs(actor.TenantID, &actor.UserID, none, none, noTime, noTime).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY started_at DESC`).
		WithArgs(actor.TenantID, &actor.UserID, none, none, noTime, noTime, 20, 0).
		WillReturnRows(pgxmock.NewRows(timeEntryCols))

	list, total, err := svc.List(context.Background(), actor, TimeEntryFilter{UserID: &other}, models.Page{})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
