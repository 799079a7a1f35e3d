package model

import "time"

// Reward is an item of a business's loyalty catalog.
type Reward struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID  string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	PointsCost  int       `gorm:"not null" json:"pointsCost"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserRewardStatus is the state of a redeemed reward.
type UserRewardStatus string

const (
	UserRewardIssued UserRewardStatus = "issued"
	UserRewardUsed   UserRewardStatus = "used"
)

// UserReward records a reward redeemed with points.
type UserReward struct {
	ID          string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string           `gorm:"type:varchar(36);index;not null" json:"userId"`
	RewardID    string           `gorm:"type:varchar(36);not null" json:"rewardId"`
	PointsSpent int              `gorm:"not null" json:"pointsSpent"`
	Code        string           `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Status      UserRewardStatus `gorm:"size:16;not null;default:issued" json:"status"`
	RedeemedAt  time.Time        `gorm:"not null" json:"redeemedAt"`

	Reward Reward `gorm:"foreignKey:RewardID" json:"reward"`
}

// Referral links a referring user to the user who signed up with their code.
type Referral struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID    string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	ReferrerID    string    `gorm:"type:varchar(36);index;not null" json:"referrerId"`
	RefereeID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"refereeId"`
	PointsAwarded int       `gorm:"not null" json:"pointsAwarded"`
	CreatedAt     time.Time `json:"createdAt"`
}
