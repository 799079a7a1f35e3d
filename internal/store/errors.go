package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSubscription is returned when a (user, endpoint) pair is already stored.
	ErrDuplicateSubscription = errors.New("push subscription already exists for this user and endpoint")
	// ErrDuplicateUser is returned when an email is already registered with the business.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrSlotTaken is returned when a booking overlaps an existing one.
	ErrSlotTaken = errors.New("time slot is no longer available")
	// ErrAlreadyRated is returned when a booking already carries a rating.
	ErrAlreadyRated = errors.New("booking has already been rated")
	// ErrNotRatable is returned for cancelled or not yet started bookings.
	ErrNotRatable = errors.New("booking cannot be rated")
	// ErrNotCancellable is returned for bookings in the past or not confirmed.
	ErrNotCancellable = errors.New("booking cannot be cancelled")
	// ErrInsufficientPoints is returned when a user cannot afford a reward.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// isUniqueViolation reports whether err is a unique constraint failure.
// Drivers without error translation are matched on their message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
