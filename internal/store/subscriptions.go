package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"spa-booking-backend/internal/model"
)

func (s *gormStore) CreateSubscription(ctx context.Context, sub *model.PushSubscription) error {
	sub.IsActive = true
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSubscription
		}
		return fmt.Errorf("failed to create push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	sub.IsActive = true
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_agent", "device_type", "is_active", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	// On conflict the generated ID was not stored; reload the surviving row.
	var stored model.PushSubscription
	if err := s.db.WithContext(ctx).
		First(&stored, "user_id = ? AND endpoint = ?", sub.UserID, sub.Endpoint).Error; err != nil {
		return fmt.Errorf("failed to reload push subscription: %w", err)
	}
	*sub = stored
	return nil
}

func (s *gormStore) DeactivateSubscription(ctx context.Context, userID, endpoint string) error {
	res := s.db.WithContext(ctx).Model(&model.PushSubscription{}).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate push subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeactivateSubscriptionByID(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&model.PushSubscription{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

func (s *gormStore) ActiveSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *gormStore) TouchSubscription(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.PushSubscription{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at.UTC()).Error
}
