// internal/notify/push/registry.go
package push

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
)

// Registry is the push subscription store. Rows are created on client
// registration, touched on every successful send, and deleted on explicit
// unsubscribe or when the push service reports the endpoint gone.
type Registry struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRegistry(db *sql.DB, log logger.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "push-registry"}),
	}
}

// Save upserts a subscription keyed by endpoint. Re-registering an existing
// endpoint refreshes its key material instead of duplicating the row.
func (r *Registry) Save(ctx context.Context, userID, endpoint, p256dhKey, authKey string) (*models.PushSubscription, error) {
	sub := &models.PushSubscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dhKey: p256dhKey,
		AuthKey:   authKey,
	}
	now := time.Now().UTC()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    p256dh_key = EXCLUDED.p256dh_key,
		    auth_key = EXCLUDED.auth_key
		RETURNING id, created_at, last_used_at`,
		sub.ID, userID, endpoint, p256dhKey, authKey, now,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("save push subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns every registered subscription for a user.
func (r *Registry) ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh_key, auth_key, created_at, last_used_at
		FROM push_subscriptions
		WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.PushSubscription
	for rows.Next() {
		sub := &models.PushSubscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt, &sub.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Touch updates last_used_at after a successful send.
func (r *Registry) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = $2 WHERE id = $1`,
		id, time.Now().UTC(),
	)
	return err
}

// Delete removes a subscription by endpoint for an explicit user unsubscribe.
func (r *Registry) Delete(ctx context.Context, userID, endpoint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`,
		userID, endpoint,
	)
	return err
}

// DeleteExpired removes every subscription flagged gone by the push service,
// in one statement.
func (r *Registry) DeleteExpired(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("delete expired subscriptions: %w", err)
	}
	r.logger.Info("purged expired push subscriptions", map[string]interface{}{
		"count": len(ids),
	})
	return nil
}
