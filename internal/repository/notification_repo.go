package repository

import (
	"context"

	"txguardian/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO notifications (id, user_id, message, read)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		n.ID, n.UserID, n.Message, n.Read,
	).Scan(&n.CreatedAt)
}

// ListByUser returns a user's notifications in insertion order
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, message, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// MarkRead flags a notification as read. Scoped to the owner so one user
// cannot touch another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var result []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &n)
	}
	return result, rows.Err()
}
