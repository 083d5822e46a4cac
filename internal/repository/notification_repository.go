package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

// NotificationRepository stores the per-user notification inbox.
type NotificationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts an unread notification. Re-inserting the same ID is a no-op so
// a retried dispatch cannot duplicate an inbox entry.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	const query = `INSERT INTO notifications (id, user_id, kind, title, body, created_at)
VALUES (:id, :user_id, :kind, :title, :body, :created_at) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the user's notifications newest first with the total count.
func (r *NotificationRepository) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var p predicates
	p.add("user_id = " + p.bind(userID))
	if filter.UnreadOnly {
		p.add("read_at IS NULL")
	}
	where := p.where()
	query := "SELECT id, user_id, kind, title, body, read_at, created_at FROM notifications" + where + " ORDER BY created_at DESC, id DESC" + page(filter.Page, filter.PageSize)

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, p.args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where, p.args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead stamps read_at on one of the user's notifications. Another user's
// notification is reported as missing.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	const query = `UPDATE notifications SET read_at = COALESCE(read_at, $3) WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, r.now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}

// CountUnread returns the number of unread notifications for the user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
