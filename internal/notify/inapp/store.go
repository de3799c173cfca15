// internal/notify/inapp/store.go
package inapp

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/common/metrics"
	"formative-notifications/internal/models"
)

// Store persists in-app notification rows, the feed the client renders.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "inapp-store"}),
	}
}

// Create inserts an unread notification row.
func (s *Store) Create(ctx context.Context, userID, category, title, message, actionURL string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Category:  category,
		Title:     title,
		Message:   message,
		ActionURL: actionURL,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, category, title, message, action_url, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		n.ID, n.UserID, n.Category, n.Title, n.Message, n.ActionURL, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	metrics.InAppNotificationsCreated.WithLabelValues(category).Inc()
	return n, nil
}

// ListByUser returns the user's notifications newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, title, message, action_url, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Category, &n.Title, &n.Message, &n.ActionURL, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification read, scoped to its owner.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	return err
}

// MarkAllRead flags every unread notification of the user read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID,
	)
	return err
}

// CountUnread returns the badge count.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID,
	).Scan(&count)
	return count, err
}
