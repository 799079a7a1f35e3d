package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription holds the information for a browser push subscription.
// A (UserID, Endpoint) pair is unique; failed deliveries deactivate the row
// instead of deleting it.
type PushSubscription struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	UserID     string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_push_user_endpoint,priority:1;index:idx_push_user_active,priority:1" json:"userId" bson:"userId"`
	Endpoint   string     `gorm:"type:varchar(512);not null;uniqueIndex:idx_push_user_endpoint,priority:2;index:idx_push_endpoint" json:"endpoint" bson:"endpoint"`
	P256DH     string     `gorm:"column:p256dh;not null" json:"p256dh" bson:"p256dh"`
	Auth       string     `gorm:"not null" json:"auth" bson:"auth"`
	UserAgent  string     `gorm:"size:512" json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	DeviceType string     `gorm:"size:32" json:"deviceType,omitempty" bson:"deviceType,omitempty"`
	IsActive   bool       `gorm:"not null;default:true;index:idx_push_user_active,priority:2" json:"isActive" bson:"isActive"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" bson:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updatedAt" bson:"updatedAt"`
}

// BeforeCreate assigns a random ID when none is set.
func (p *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
