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

var notificationCols = []string{"id", "tenant_id", "user_id", "actor_id", "type", "title", "message", "action_url", "read_at", "created_at"}

type recordingPublisher struct {
	published []*models.Notification
}

func (p *recordingPublisher) PublishNotification(n *models.Notification) bool {
	p.published = append(p.published, n)
	return true
}

func setupNotificationService(t *testing.T) (*NotificationService, *recordingPublisher, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	pub := &recordingPublisher{}
	return NewNotificationService(&database.DB{Pool: mock}, pub), pub, mock
}

func TestNotificationService_Create(t *testing.T) {
	svc, pub, mock := setupNotificationService(t)
	tenantID, recipient, actor := uuid.New(), uuid.New(), uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(tenantID, recipient, &actor, models.NotificationTaskAssigned, "Task assigned", "msg", "/tasks/1").
		WillReturnRows(pgxmock.NewRows(notificationCols).
			AddRow(id, tenantID, recipient, &actor, models.NotificationTaskAssigned, "Task assigned", "msg", "/tasks/1", nil, time.Now()))

	n, err := svc.Create(context.Background(), NotifyParams{
		TenantID: tenantID, RecipientID: recipient, ActorID: actor,
		Type: models.NotificationTaskAssigned, Title: "Task assigned", Message: "msg", ActionURL: "/tasks/1",
	})

	require.NoError(t, err)
	assert.Equal(t, id, n.ID)
	require.Len(t, pub.published, 1)
	assert.Equal(t, id, pub.published[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_Create_SkipsSelf(t *testing.T) {
	svc, pub, mock := setupNotificationService(t)
	userID := uuid.New()

	n, err := svc.Create(context.Background(), NotifyParams{TenantID: uuid.New(), RecipientID: userID, ActorID: userID})

	assert.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, pub.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_NotifyBestEffort_SwallowsErrors(t *testing.T) {
	svc, pub, mock := setupNotificationService(t)

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	assert.NotPanics(t, func() {
		svc.NotifyBestEffort(context.Background(), NotifyParams{TenantID: uuid.New(), RecipientID: uuid.New(), ActorID: uuid.New()})
	})
	assert.Empty(t, pub.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_List(t *testing.T) {
	svc, _, mock := setupNotificationService(t)
	tenantID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs(tenantID, userID, true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM notifications .+ LIMIT`).
		WithArgs(tenantID, userID, true, 20, 0).
		WillReturnRows(pgxmock.NewRows(notificationCols).
			AddRow(uuid.New(), tenantID, userID, nil, models.NotificationMemberAdded, "t", "m", "", nil, time.Now()))

	list, total, err := svc.List(context.Background(), tenantID, userID, true, models.Page{Page: 1, PerPage: 20})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_MarkRead_NotFound(t *testing.T) {
	svc, _, mock := setupNotificationService(t)
	tenantID, userID, id := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`UPDATE notifications SET read_at`).
		WithArgs(id, tenantID, userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.MarkRead(context.Background(), tenantID, userID, id)

	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	svc, _, mock := setupNotificationService(t)
	tenantID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE notifications SET read_at = NOW\(\)`).
		WithArgs(tenantID, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := svc.MarkAllRead(context.Background(), tenantID, userID)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
