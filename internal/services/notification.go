package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Publisher pushes a stored notification to live clients.
type Publisher interface {
	PublishNotification(n *models.Notification) bool
}

// Notifier is the best-effort notification contract used by the domain
// services. Implementations never return an error to the caller.
type Notifier interface {
	NotifyBestEffort(ctx context.Context, n NotifyParams)
}

type NotifyParams struct {
	TenantID    uuid.UUID
	RecipientID uuid.UUID
	ActorID     uuid.UUID
	Type        string
	Title       string
	Message     string
	ActionURL   string
}

const notificationColumns = `id, tenant_id, user_id, actor_id, type, title, message, action_url, read_at, created_at`

type NotificationService struct {
	db        *database.DB
	publisher Publisher
}

func NewNotificationService(db *database.DB, publisher Publisher) *NotificationService {
	return &NotificationService{db: db, publisher: publisher}
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.TenantID, &n.UserID, &n.ActorID, &n.Type, &n.Title, &n.Message, &n.ActionURL, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create stores a notification and pushes it to open streams. It returns
// (nil, nil) when the actor is also the recipient.
func (s *NotificationService) Create(ctx context.Context, p NotifyParams) (*models.Notification, error) {
	if p.RecipientID == uuid.Nil || p.RecipientID == p.ActorID {
		return nil, nil
	}

	var actorID *uuid.UUID
	if p.ActorID != uuid.Nil {
		actorID = &p.ActorID
	}

	n, err := scanNotification(s.db.Pool.QueryRow(ctx, `
		INSERT INTO notifications (tenant_id, user_id, actor_id, type, title, message, action_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		p.TenantID, p.RecipientID, actorID, p.Type, p.Title, p.Message, p.ActionURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.publisher != nil && !s.publisher.PublishNotification(n) {
		logging.FromContext(ctx).Warn("notification stream queue full", "notification_id", n.ID)
	}
	return n, nil
}

// NotifyBestEffort creates the notification and logs any failure. It never
// retries and never fails the caller.
func (s *NotificationService) NotifyBestEffort(ctx context.Context, p NotifyParams) {
	if _, err := s.Create(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("notification failed",
			"type", p.Type,
			"recipient_id", p.RecipientID,
			"error", err,
		)
	}
}

func (s *NotificationService) List(ctx context.Context, tenantID, userID uuid.UUID, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND ($3 = FALSE OR read_at IS NULL)
	`, tenantID, userID, unreadOnly).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND ($3 = FALSE OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, userID, unreadOnly, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *n)
	}
	return list, total, rows.Err()
}

func (s *NotificationService) UnreadCount(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
	`, tenantID, userID).Scan(&n)
	return n, err
}

func (s *NotificationService) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(s.db.Pool.QueryRow(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
		RETURNING `+notificationColumns,
		id, tenantID, userID))
	if err != nil {
		return nil, notFound(err, ErrNotificationNotFound)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
	`, tenantID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
