package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spa-booking-backend/internal/model"
)

// ListBookingsBetween returns the non-cancelled bookings of a location that
// overlap [from, to).
func (s *gormStore) ListBookingsBetween(ctx context.Context, locationID string, from, to time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).
		Where("location_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
			locationID, model.BookingCancelled, to.UTC(), from.UTC()).
		Order("starts_at ASC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings for location %s: %w", locationID, err)
	}
	return bookings, nil
}

// CreateBooking inserts b after checking it does not overlap another booking
// at the same location, then credits the booking's reward points.
func (s *gormStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = newID()
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize bookings of the same location until commit.
		var location model.Location
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&location, "id = ?", b.LocationID).Error; err != nil {
			return notFound(err)
		}

		var overlapping int64
		if err := tx.Model(&model.Booking{}).
			Where("location_id = ? AND status <> ? AND starts_at < ? AND ends_at > ?",
				b.LocationID, model.BookingCancelled, b.EndsAt, b.StartsAt).
			Count(&overlapping).Error; err != nil {
			return fmt.Errorf("failed to check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return ErrSlotTaken
		}

		if err := tx.Omit(clause.Associations).Create(b).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		if b.PointsAwarded > 0 {
			if err := tx.Model(&model.User{}).Where("id = ?", b.UserID).
				Update("points_balance", gorm.Expr("points_balance + ?", b.PointsAwarded)).Error; err != nil {
				return fmt.Errorf("failed to credit points for booking %s: %w", b.ID, err)
			}
		}

		return tx.Create(&model.Activity{
			BusinessID: b.BusinessID,
			UserID:     b.UserID,
			Action:     model.ActionBookingCreated,
			Detail:     b.ID,
		}).Error
	})
}

func (s *gormStore) GetBooking(ctx context.Context, businessID, bookingID string) (*model.Booking, error) {
	var b model.Booking
	if err := s.db.WithContext(ctx).Preload("Service").Preload("Location").
		First(&b, "id = ? AND business_id = ?", bookingID, businessID).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *gormStore) ListUpcomingBookings(ctx context.Context, userID string, now time.Time, limit int) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).Preload("Service").Preload("Location").
		Where("user_id = ? AND status = ? AND starts_at >= ?", userID, model.BookingConfirmed, now.UTC()).
		Order("starts_at ASC").
		Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *gormStore) ListPastBookings(ctx context.Context, userID string, now time.Time, limit int) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).Preload("Service").Preload("Location").
		Where("user_id = ? AND (starts_at < ? OR status <> ?)", userID, now.UTC(), model.BookingConfirmed).
		Order("starts_at DESC").
		Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *gormStore) CountUpcomingBookings(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("user_id = ? AND status = ? AND starts_at >= ?", userID, model.BookingConfirmed, now.UTC()).
		Count(&count).Error
	return count, err
}

func (s *gormStore) BookingStats(ctx context.Context, userID string) (*BookingStats, error) {
	type statusRow struct {
		Status model.BookingStatus
		Count  int64
	}
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}

	stats := &BookingStats{}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case model.BookingConfirmed:
			stats.Confirmed = r.Count
		case model.BookingCompleted:
			stats.Completed = r.Count
		case model.BookingCancelled:
			stats.Cancelled = r.Count
		}
	}

	if err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("user_id = ? AND rating > 0", userID).
		Scan(&stats.AverageRating).Error; err != nil {
		return nil, fmt.Errorf("failed to average ratings: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Joins("JOIN services ON services.id = bookings.service_id").
		Select("COALESCE(SUM(services.price_cents), 0)").
		Where("bookings.user_id = ? AND bookings.status <> ?", userID, model.BookingCancelled).
		Scan(&stats.TotalSpent).Error; err != nil {
		return nil, fmt.Errorf("failed to total spending: %w", err)
	}
	return stats, nil
}

// RateBooking stores a 1..5 rating on a started, non-cancelled booking owned
// by userID and marks it completed.
func (s *gormStore) RateBooking(ctx context.Context, bookingID, userID string, rating int, review string, now time.Time) (*model.Booking, error) {
	var b model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ? AND user_id = ?", bookingID, userID).Error; err != nil {
			return notFound(err)
		}
		if b.Status == model.BookingCancelled || b.StartsAt.After(now) {
			return ErrNotRatable
		}
		if b.Rating > 0 {
			return ErrAlreadyRated
		}

		if err := tx.Model(&b).Omit(clause.Associations).Updates(map[string]any{
			"rating": rating,
			"review": review,
			"status": model.BookingCompleted,
		}).Error; err != nil {
			return fmt.Errorf("failed to rate booking %s: %w", bookingID, err)
		}
		b.Rating = rating
		b.Review = review
		b.Status = model.BookingCompleted

		return tx.Create(&model.Activity{
			BusinessID: b.BusinessID,
			UserID:     userID,
			Action:     model.ActionBookingRated,
			Detail:     fmt.Sprintf("%s:%d", bookingID, rating),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelBooking cancels a future confirmed booking and takes back the points
// it granted, never driving the balance below zero.
func (s *gormStore) CancelBooking(ctx context.Context, bookingID, userID string, now time.Time) (*model.Booking, error) {
	var b model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ? AND user_id = ?", bookingID, userID).Error; err != nil {
			return notFound(err)
		}
		if b.Status != model.BookingConfirmed || !b.StartsAt.After(now) {
			return ErrNotCancellable
		}

		if err := tx.Model(&b).Omit(clause.Associations).Update("status", model.BookingCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel booking %s: %w", bookingID, err)
		}
		b.Status = model.BookingCancelled

		if b.PointsAwarded > 0 {
			if err := tx.Model(&model.User{}).Where("id = ?", userID).
				Update("points_balance", gorm.Expr(
					"CASE WHEN points_balance >= ? THEN points_balance - ? ELSE 0 END",
					b.PointsAwarded, b.PointsAwarded)).Error; err != nil {
				return fmt.Errorf("failed to revoke points for booking %s: %w", bookingID, err)
			}
		}

		return tx.Create(&model.Activity{
			BusinessID: b.BusinessID,
			UserID:     userID,
			Action:     model.ActionBookingCanceled,
			Detail:     bookingID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DueReminders lists confirmed bookings starting in [from, to) that have not
// been reminded yet.
func (s *gormStore) DueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := s.db.WithContext(ctx).Preload("Service").Preload("Location").
		Where("status = ? AND reminder_sent_at IS NULL AND starts_at >= ? AND starts_at < ?",
			model.BookingConfirmed, from.UTC(), to.UTC()).
		Order("starts_at ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *gormStore) MarkReminderSent(ctx context.Context, bookingID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", bookingID).
		UpdateColumn("reminder_sent_at", at.UTC()).Error
}
