package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is an appointment of a user for a service at a location.
type Booking struct {
	ID             string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID     string        `gorm:"type:varchar(36);index;not null" json:"businessId"`
	LocationID     string        `gorm:"type:varchar(36);index:idx_booking_location_start,priority:1;not null" json:"locationId"`
	ServiceID      string        `gorm:"type:varchar(36);not null" json:"serviceId"`
	UserID         string        `gorm:"type:varchar(36);index;not null" json:"userId"`
	StartsAt       time.Time     `gorm:"index:idx_booking_location_start,priority:2;not null" json:"startsAt"`
	EndsAt         time.Time     `gorm:"not null" json:"endsAt"`
	Status         BookingStatus `gorm:"size:16;not null;default:confirmed" json:"status"`
	PointsAwarded  int           `gorm:"not null;default:0" json:"pointsAwarded"`
	Rating         int           `gorm:"not null;default:0" json:"rating"`
	Review         string        `gorm:"size:2048" json:"review,omitempty"`
	ReminderSentAt *time.Time    `json:"reminderSentAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	Service  Service  `gorm:"foreignKey:ServiceID" json:"service"`
	Location Location `gorm:"foreignKey:LocationID" json:"location"`
}
