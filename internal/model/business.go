package model

import "time"

// Business is a tenant: one spa or salon addressed by its subdomain.
type Business struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Subdomain      string    `gorm:"uniqueIndex;size:63;not null" json:"subdomain"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	LogoURL        string    `gorm:"size:512" json:"logoUrl"`
	PrimaryColor   string    `gorm:"size:16" json:"primaryColor"`
	SecondaryColor string    `gorm:"size:16" json:"secondaryColor"`
	Tagline        string    `gorm:"size:256" json:"tagline"`
	Timezone       string    `gorm:"size:64" json:"timezone"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"not null" json:"updatedAt"`
}

// Location is a physical site of a business.
type Location struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Address    string    `gorm:"size:512" json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Hours []BusinessHours `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"businessHours,omitempty"`
}

// Service is a bookable treatment.
type Service struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID      string    `gorm:"type:varchar(36);index;not null" json:"businessId"`
	Name            string    `gorm:"size:256;not null" json:"name"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	PriceCents      int64     `gorm:"not null" json:"priceCents"`
	RewardPoints    int       `gorm:"not null;default:0" json:"rewardPoints"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BusinessHours is the opening window of a location on one weekday.
// Minutes are counted from local midnight.
type BusinessHours struct {
	LocationID  string `gorm:"type:varchar(36);primaryKey" json:"-"`
	Weekday     int    `gorm:"primaryKey;autoIncrement:false" json:"weekday"`
	OpenMinute  int    `gorm:"not null" json:"openMinute"`
	CloseMinute int    `gorm:"not null" json:"closeMinute"`
	Closed      bool   `gorm:"not null;default:false" json:"closed"`
}
