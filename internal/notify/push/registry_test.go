// internal/notify/push/registry_test.go
package push

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formative-notifications/internal/common/logger"
)

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistry(db, logger.NewNoOpLogger()), mock
}

func TestRegistry_SaveInsertsNewSubscription(t *testing.T) {
	registry, mock := newTestRegistry(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO push_subscriptions").
		WithArgs(sqlmock.AnyArg(), "user-001", "https://push.example/a", "p-key", "a-key", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_used_at"}).
			AddRow("sub-new", now, now))

	sub, err := registry.Save(context.Background(), "user-001", "https://push.example/a", "p-key", "a-key")

	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.ID)
	assert.Equal(t, "user-001", sub.UserID)
	assert.Equal(t, "https://push.example/a", sub.Endpoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_SaveReregisterKeepsExistingRow(t *testing.T) {
	registry, mock := newTestRegistry(t)

	// The upsert returns the original row id, not the freshly generated one.
	created := time.Now().Add(-48 * time.Hour)
	mock.ExpectQuery("INSERT INTO push_subscriptions").
		WithArgs(sqlmock.AnyArg(), "user-001", "https://push.example/a", "p-rotated", "a-rotated", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "last_used_at"}).
			AddRow("sub-original", created, created))

	sub, err := registry.Save(context.Background(), "user-001", "https://push.example/a", "p-rotated", "a-rotated")

	require.NoError(t, err)
	assert.Equal(t, "sub-original", sub.ID)
	assert.Equal(t, "p-rotated", sub.P256dhKey)
	assert.WithinDuration(t, created, sub.CreatedAt, time.Second)
}

func TestRegistry_Delete(t *testing.T) {
	registry, mock := newTestRegistry(t)

	mock.ExpectExec("DELETE FROM push_subscriptions").
		WithArgs("user-001", "https://push.example/a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := registry.Delete(context.Background(), "user-001", "https://push.example/a")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_DeleteExpiredBatchesIntoOneStatement(t *testing.T) {
	registry, mock := newTestRegistry(t)

	mock.ExpectExec("DELETE FROM push_subscriptions").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := registry.DeleteExpired(context.Background(), []string{"sub-a", "sub-b", "sub-c"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_DeleteExpiredEmptyListTouchesNothing(t *testing.T) {
	registry, mock := newTestRegistry(t)

	err := registry.DeleteExpired(context.Background(), nil)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
