package model

import "time"

// Role is the permission level of a spa user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{RoleCustomer: 0, RoleStaff: 1, RoleAdmin: 2}

// AtLeast reports whether r grants the permissions of min.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	return ok && rank >= roleRank[min]
}

// User is a customer or staff member of one business.
type User struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID    string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_business_email,priority:1" json:"businessId"`
	Email         string     `gorm:"size:256;not null;uniqueIndex:idx_user_business_email,priority:2" json:"email"`
	Name          string     `gorm:"size:256;not null" json:"name"`
	PasswordHash  string     `gorm:"size:128;not null" json:"-"`
	Role          Role       `gorm:"size:16;not null;default:customer" json:"role"`
	ReferralCode  string     `gorm:"size:16;uniqueIndex;not null" json:"referralCode"`
	ReferredByID  *string    `gorm:"type:varchar(36)" json:"referredById,omitempty"`
	PointsBalance int        `gorm:"not null;default:0" json:"pointsBalance"`
	LastActiveAt  *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Activity is an audit entry shown on the staff activity feed.
type Activity struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	BusinessID string    `gorm:"type:varchar(36);index:idx_activity_business_created,priority:1;not null" json:"businessId"`
	UserID     string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	Detail     string    `gorm:"size:512" json:"detail"`
	CreatedAt  time.Time `gorm:"index:idx_activity_business_created,priority:2;not null" json:"createdAt"`
}

// Activity actions.
const (
	ActionRegistered      = "registered"
	ActionBookingCreated  = "booking_created"
	ActionBookingCanceled = "booking_cancelled"
	ActionBookingRated    = "booking_rated"
	ActionRewardRedeemed  = "reward_redeemed"
)
