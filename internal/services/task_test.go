package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskCols = []string{"id", "tenant_id", "project_id", "title", "description", "status", "priority", "assignee_id",
	"created_by", "estimated_hours", "actual_hours", "due_date", "completed_at", "created_at", "updated_at"}

func setupTaskService(t *testing.T) (*TaskService, *recordingNotifier, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	n := &recordingNotifier{}
	svc := NewTaskService(&database.DB{Pool: mock}, n)
	svc.now = func() time.Time { return fixedNow }
	return svc, n, mock
}

func taskRow(task models.Task) *pgxmock.Rows {
	return pgxmock.NewRows(taskCols).AddRow(task.ID, task.TenantID, task.ProjectID, task.Title, task.Description,
		task.Status, task.Priority, task.AssigneeID, task.CreatedBy, task.EstimatedHours, task.ActualHours,
		task.DueDate, task.CompletedAt, fixedNow, fixedNow)
}

func sampleTask(status string) models.Task {
	return models.Task{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		ProjectID: uuid.New(),
		Title:     "Landing page",
		Status:    status,
		Priority:  models.TaskPriorityMedium,
		CreatedBy: uuid.New(),
	}
}

func TestTaskService_Update_CompletingStampsAndNotifiesCreator(t *testing.T) {
	svc, notifier, mock := setupTaskService(t)
	prev := sampleTask(models.TaskStatusInProgress)
	actorID := uuid.New()
	done := models.TaskStatusDone

	next := prev
	next.Status = done
	next.CompletedAt = &fixedNow

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1 AND tenant_id = \$2 FOR UPDATE`).
		WithArgs(prev.ID, prev.TenantID).
		WillReturnRows(taskRow(prev))
	mock.ExpectQuery(`UPDATE tasks SET`).
		WithArgs(prev.Title, prev.Description, done, prev.Priority, (*uuid.UUID)(nil),
			(*float64)(nil), (*time.Time)(nil), &fixedNow, prev.ID).
		WillReturnRows(taskRow(next))
	mock.ExpectCommit()

	got, err := svc.Update(context.Background(), actorID, prev.TenantID, prev.ID, TaskUpdate{Status: &done})

	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, []string{models.NotificationTaskCompleted}, notifier.types())
	assert.Equal(t, prev.CreatedBy, notifier.calls[0].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_Update_AssigningNotifiesAssignee(t *testing.T) {
	svc, notifier, mock := setupTaskService(t)
	prev := sampleTask(models.TaskStatusTodo)
	actorID, assignee := uuid.New(), uuid.New()

	next := prev
	next.AssigneeID = &assignee

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(prev.ID, prev.TenantID).
		WillReturnRows(taskRow(prev))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM tenant_users`).
		WithArgs(prev.TenantID, assignee).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`UPDATE tasks SET`).
		WithArgs(prev.Title, prev.Description, prev.Status, prev.Priority, &assignee,
			(*float64)(nil), (*time.Time)(nil), (*time.Time)(nil), prev.ID).
		WillReturnRows(taskRow(next))
	mock.ExpectCommit()

	_, err := svc.Update(context.Background(), actorID, prev.TenantID, prev.ID, TaskUpdate{AssigneeID: &assignee})

	require.NoError(t, err)
	assert.Equal(t, []string{models.NotificationTaskAssigned}, notifier.types())
	assert.Equal(t, assignee, notifier.calls[0].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_Update_AssigneeOutsideTenant(t *testing.T) {
	svc, _, mock := setupTaskService(t)
	prev := sampleTask(models.TaskStatusTodo)
	stranger := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(prev.ID, prev.TenantID).
		WillReturnRows(taskRow(prev))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM tenant_users`).
		WithArgs(prev.TenantID, stranger).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), uuid.New(), prev.TenantID, prev.ID, TaskUpdate{AssigneeID: &stranger})

	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_Update_Validation(t *testing.T) {
	svc, _, _ := setupTaskService(t)
	bogus := "blocked"

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), uuid.New(), TaskUpdate{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = svc.Update(context.Background(), uuid.New(), uuid.New(), uuid.New(), TaskUpdate{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskService_Update_NotFound(t *testing.T) {
	svc, _, mock := setupTaskService(t)
	title := "x"
	tenantID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(id, tenantID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), uuid.New(), tenantID, id, TaskUpdate{Title: &title})

	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTaskUpdate_CompletedAt(t *testing.T) {
	earlier := fixedNow.Add(-48 * time.Hour)
	done, review, title := models.TaskStatusDone, models.TaskStatusReview, "renamed"

	task := sampleTask(models.TaskStatusTodo)
	got := applyTaskUpdate(task, TaskUpdate{Status: &done}, fixedNow)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, fixedNow, *got.CompletedAt)

	task = sampleTask(models.TaskStatusDone)
	task.CompletedAt = &earlier
	got = applyTaskUpdate(task, TaskUpdate{Title: &title}, fixedNow)
	assert.Equal(t, &earlier, got.CompletedAt, "staying done keeps the original stamp")

	got = applyTaskUpdate(task, TaskUpdate{Status: &review}, fixedNow)
	assert.Nil(t, got.CompletedAt)
}

func TestApplyTaskUpdate_ClearAssignee(t *testing.T) {
	assignee := uuid.New()
	task := sampleTask(models.TaskStatusTodo)
	task.AssigneeID = &assignee

	got := applyTaskUpdate(task, TaskUpdate{ClearAssignee: true}, fixedNow)

	assert.Nil(t, got.AssigneeID)
}

func TestTaskService_Create_DefaultsAndProjectScope(t *testing.T) {
	svc, _, mock := setupTaskService(t)
	tenantID, projectID, creatorID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`INSERT INTO tasks .+ FROM projects p WHERE p.id = \$2 AND p.tenant_id = \$1`).
		WithArgs(tenantID, projectID, "Wireframes", "", models.TaskStatusTodo, models.TaskPriorityMedium,
			(*uuid.UUID)(nil), creatorID, (*float64)(nil), (*time.Time)(nil), (*time.Time)(nil)).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Create(context.Background(), tenantID, projectID, creatorID, TaskInput{Title: "Wireframes"})

	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeTaskHours(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	taskID := uuid.New()
	mock.ExpectExec(`UPDATE tasks SET actual_hours = ROUND`).
		WithArgs(taskID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, recomputeTaskHours(context.Background(), mock, &taskID))
	require.NoError(t, recomputeTaskHours(context.Background(), mock, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
