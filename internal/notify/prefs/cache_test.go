// internal/notify/prefs/cache_test.go
package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formative-notifications/internal/common/database"
	"formative-notifications/internal/common/logger"
)

func newTestCachedStore(t *testing.T) (*CachedStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { rdb.Close() })

	store := NewStore(db, logger.NewNoOpLogger())
	cached := NewCachedStore(store, rdb, 5*time.Minute, logger.NewNoOpLogger())
	return cached, mock, mr
}

func TestCachedGet_SecondReadSkipsDatabase(t *testing.T) {
	cached, mock, mr := newTestCachedStore(t)

	row := sqlmock.NewRows(prefColumns()).AddRow(
		true, true, true, true, true, true,
		false, true, true, true, true, true,
		true, true, true, true, true, true,
		true, "weekly",
		false, "22:00", "08:00", "UTC",
	)
	// Exactly one database round trip across two Gets.
	mock.ExpectQuery("FROM notification_preferences").
		WithArgs("user-001").
		WillReturnRows(row)

	first, err := cached.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.False(t, first.EmailMessages)
	assert.True(t, mr.Exists(cacheKeyPrefix+"user-001"))

	second, err := cached.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGet_CorruptCacheFallsThrough(t *testing.T) {
	cached, mock, mr := newTestCachedStore(t)

	require.NoError(t, mr.Set(cacheKeyPrefix+"user-001", "{not json"))

	mock.ExpectQuery("FROM notification_preferences").
		WithArgs("user-001").
		WillReturnRows(sqlmock.NewRows(prefColumns()).AddRow(
			true, true, true, true, true, true,
			true, true, true, true, true, true,
			true, true, true, true, true, true,
			true, "weekly",
			false, "22:00", "08:00", "UTC",
		))

	p, err := cached.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.True(t, p.EmailMessages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGet_RedisDownFallsThrough(t *testing.T) {
	cached, mock, mr := newTestCachedStore(t)
	mr.Close()

	mock.ExpectQuery("FROM notification_preferences").
		WithArgs("user-001").
		WillReturnRows(sqlmock.NewRows(prefColumns()).AddRow(
			true, true, true, true, true, true,
			true, true, true, true, true, true,
			true, true, true, true, true, true,
			true, "weekly",
			false, "22:00", "08:00", "UTC",
		))

	p, err := cached.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestCachedUpdate_InvalidatesCache(t *testing.T) {
	cached, mock, mr := newTestCachedStore(t)

	require.NoError(t, mr.Set(cacheKeyPrefix+"user-001", `{"userId":"user-001"}`))

	mock.ExpectExec("INSERT INTO notification_preferences").
		WithArgs("user-001", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := cached.Update(context.Background(), "user-001", map[string]interface{}{
		"push_messages": false,
	})

	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKeyPrefix+"user-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedUpdate_StoreErrorLeavesCacheIntact(t *testing.T) {
	cached, mock, mr := newTestCachedStore(t)

	require.NoError(t, mr.Set(cacheKeyPrefix+"user-001", `{"userId":"user-001"}`))

	err := cached.Update(context.Background(), "user-001", map[string]interface{}{
		"not_a_field": true,
	})

	require.Error(t, err)
	assert.True(t, mr.Exists(cacheKeyPrefix+"user-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
