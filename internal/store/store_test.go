package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"spa-booking-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore opens a private in-memory database with every table migrated.
func newSQLiteStore(t *testing.T) (GormStore, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(model.All()...))

	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return NewGormStore(gormDB), gormDB
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_DeactivateSubscription_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "push_subscriptions" SET "is_active"=$1,"updated_at"=$2 WHERE user_id = $3 AND endpoint = $4`)).
		WithArgs(false, Any{}, "user-1", "https://push.example.com/1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.DeactivateSubscription(context.Background(), "user-1", "https://push.example.com/1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeactivateSubscription_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "push_subscriptions"`)).
		WithArgs(false, Any{}, "user-1", "https://push.example.com/missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.DeactivateSubscription(context.Background(), "user-1", "https://push.example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SubscriptionUniqueness(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	first := &model.PushSubscription{UserID: "user-1", Endpoint: "https://push.example.com/a", P256DH: "k1", Auth: "a1"}
	require.NoError(t, s.CreateSubscription(ctx, first))

	second := &model.PushSubscription{UserID: "user-1", Endpoint: "https://push.example.com/a", P256DH: "k2", Auth: "a2"}
	err := s.CreateSubscription(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateSubscription)

	// Same endpoint for another user and another endpoint for the same user are fine.
	require.NoError(t, s.CreateSubscription(ctx, &model.PushSubscription{UserID: "user-2", Endpoint: "https://push.example.com/a", P256DH: "k", Auth: "a"}))
	require.NoError(t, s.CreateSubscription(ctx, &model.PushSubscription{UserID: "user-1", Endpoint: "https://push.example.com/b", P256DH: "k", Auth: "a"}))
}

func TestGormStore_SubscriptionLifecycle(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	sub := &model.PushSubscription{UserID: "user-1", Endpoint: "https://push.example.com/a", P256DH: "k1", Auth: "a1", DeviceType: "desktop"}
	require.NoError(t, s.SaveSubscription(ctx, sub))
	originalID := sub.ID

	active, err := s.ActiveSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, active, 1)

	// Unsubscribing keeps the row but hides it from fan-out.
	require.NoError(t, s.DeactivateSubscription(ctx, "user-1", "https://push.example.com/a"))
	active, err = s.ActiveSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Re-subscribing reactivates the same row with fresh keys.
	again := &model.PushSubscription{UserID: "user-1", Endpoint: "https://push.example.com/a", P256DH: "k2", Auth: "a2"}
	require.NoError(t, s.SaveSubscription(ctx, again))
	assert.Equal(t, originalID, again.ID)
	assert.Equal(t, "k2", again.P256DH)
	assert.True(t, again.IsActive)

	used := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchSubscription(ctx, again.ID, used))
	active, err = s.ActiveSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].LastUsedAt)
	assert.True(t, used.Equal(*active[0].LastUsedAt))

	require.NoError(t, s.DeactivateSubscriptionByID(ctx, again.ID))
	active, err = s.ActiveSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, s.DeactivateSubscription(ctx, "user-1", "https://push.example.com/missing"), ErrNotFound)
}

func TestGormStore_CreateBooking_LocksLocation(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "locations" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("loc-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "bookings"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := s.CreateBooking(context.Background(), &model.Booking{
		LocationID: "loc-1",
		StartsAt:   start,
		EndsAt:     start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
