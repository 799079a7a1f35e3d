package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"spa-booking-backend/internal/model"
)

// Store defines the interface for all relational database operations.
type Store interface {
	// Businesses
	GetBusinessBySubdomain(ctx context.Context, subdomain string) (*model.Business, error)
	CreateBusiness(ctx context.Context, b *model.Business) error
	UpdateBranding(ctx context.Context, businessID string, branding Branding) (*model.Business, error)
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)

	// Catalog
	CreateLocation(ctx context.Context, l *model.Location) error
	CreateService(ctx context.Context, s *model.Service) error
	GetLocation(ctx context.Context, businessID, locationID string) (*model.Location, error)
	GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error)
	GetBusinessHours(ctx context.Context, locationID string, weekday time.Weekday) (*model.BusinessHours, error)
	ReplaceBusinessHours(ctx context.Context, locationID string, hours []model.BusinessHours) error

	// Users
	RegisterUser(ctx context.Context, u *model.User, referral *ReferralGrant) error
	GetUser(ctx context.Context, businessID, userID string) (*model.User, error)
	GetUserByEmail(ctx context.Context, businessID, email string) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, businessID, code string) (*model.User, error)
	ListUsers(ctx context.Context, businessID string, limit, offset int) ([]model.User, error)
	TouchUser(ctx context.Context, userID string, at time.Time) error
	LogActivity(ctx context.Context, a *model.Activity) error
	ListActivity(ctx context.Context, businessID string, limit int) ([]model.Activity, error)
	ListUserActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error)

	// Bookings
	ListBookingsBetween(ctx context.Context, locationID string, from, to time.Time) ([]model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, businessID, bookingID string) (*model.Booking, error)
	ListUpcomingBookings(ctx context.Context, userID string, now time.Time, limit int) ([]model.Booking, error)
	ListPastBookings(ctx context.Context, userID string, now time.Time, limit int) ([]model.Booking, error)
	CountUpcomingBookings(ctx context.Context, userID string, now time.Time) (int64, error)
	BookingStats(ctx context.Context, userID string) (*BookingStats, error)
	RateBooking(ctx context.Context, bookingID, userID string, rating int, review string, now time.Time) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID string, now time.Time) (*model.Booking, error)
	DueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	MarkReminderSent(ctx context.Context, bookingID string, at time.Time) error

	// Rewards and referrals
	CreateReward(ctx context.Context, r *model.Reward) error
	ListRewards(ctx context.Context, businessID string) ([]model.Reward, error)
	RedeemReward(ctx context.Context, businessID, userID, rewardID string, now time.Time) (*model.UserReward, error)
	ListUserRewards(ctx context.Context, userID string) ([]model.UserReward, error)
	ReferralStats(ctx context.Context, userID string) (*ReferralStats, error)
	ReferralLeaderboard(ctx context.Context, businessID string, limit int) ([]LeaderboardEntry, error)

	DB() *gorm.DB
}

// SubscriptionStore persists browser push subscriptions.
type SubscriptionStore interface {
	// CreateSubscription inserts a new record and fails with
	// ErrDuplicateSubscription when the (user, endpoint) pair exists.
	CreateSubscription(ctx context.Context, sub *model.PushSubscription) error
	// SaveSubscription inserts or reactivates the (user, endpoint) record and
	// refreshes its keys. sub is updated with the stored row.
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeactivateSubscription(ctx context.Context, userID, endpoint string) error
	DeactivateSubscriptionByID(ctx context.Context, id string) error
	ActiveSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	TouchSubscription(ctx context.Context, id string, at time.Time) error
}

// gormStore implements Store and SubscriptionStore using GORM.
type gormStore struct {
	db *gorm.DB
}

// GormStore is the concrete GORM-backed store.
type GormStore interface {
	Store
	SubscriptionStore
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) GormStore {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for health checks and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func newID() string {
	return uuid.NewString()
}

// newCode returns a short upper-case code for referrals and reward vouchers.
func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
