// internal/notify/inapp/store_test.go
package inapp

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewNoOpLogger()), mock
}

func TestCreate(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "user-001", models.CategoryMessages, "New message",
			"Ana sent you a message", "/messages/42", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Create(context.Background(), "user-001", models.CategoryMessages,
		"New message", "Ana sent you a message", "/messages/42")

	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "user-001", n.UserID)
	assert.False(t, n.Read)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser_DefaultsLimit(t *testing.T) {
	store, mock := newTestStore(t)

	now := time.Now()
	mock.ExpectQuery("FROM notifications").
		WithArgs("user-001", 20, 0).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "category", "title", "message", "action_url", "read", "created_at"}).
			AddRow("n-2", "user-001", models.CategoryMessages, "t2", "m2", "", false, now).
			AddRow("n-1", "user-001", models.CategoryPayments, "t1", "m1", "/p/1", true, now.Add(-time.Hour)))

	list, err := store.ListByUser(context.Background(), "user-001", 0, 0)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n-2", list[0].ID)
	assert.True(t, list[1].Read)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRead_ScopedToOwner(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("n-1", "user-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkRead(context.Background(), "user-001", "n-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAllRead(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("user-001").
		WillReturnResult(sqlmock.NewResult(0, 7))

	require.NoError(t, store.MarkAllRead(context.Background(), "user-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountUnread(context.Background(), "user-001")

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
