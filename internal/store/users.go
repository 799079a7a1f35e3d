package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"spa-booking-backend/internal/model"
)

// RegisterUser creates u and, when referral is set, records the referral and
// credits both sides in the same transaction.
func (s *gormStore) RegisterUser(ctx context.Context, u *model.User, referral *ReferralGrant) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.ReferralCode == "" {
		u.ReferralCode = newCode()
	}
	if u.Role == "" {
		u.Role = model.RoleCustomer
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if referral != nil {
		u.ReferredByID = &referral.ReferrerID
		u.PointsBalance += referral.RefereePoints
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateUser
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := tx.Create(&model.Activity{
			BusinessID: u.BusinessID,
			UserID:     u.ID,
			Action:     model.ActionRegistered,
			Detail:     u.Email,
		}).Error; err != nil {
			return fmt.Errorf("failed to log registration: %w", err)
		}

		if referral == nil {
			return nil
		}

		if err := tx.Create(&model.Referral{
			ID:            newID(),
			BusinessID:    u.BusinessID,
			ReferrerID:    referral.ReferrerID,
			RefereeID:     u.ID,
			PointsAwarded: referral.ReferrerPoints,
		}).Error; err != nil {
			return fmt.Errorf("failed to record referral: %w", err)
		}

		if referral.ReferrerPoints > 0 {
			if err := tx.Model(&model.User{}).Where("id = ?", referral.ReferrerID).
				Update("points_balance", gorm.Expr("points_balance + ?", referral.ReferrerPoints)).Error; err != nil {
				return fmt.Errorf("failed to credit referrer %s: %w", referral.ReferrerID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) GetUser(ctx context.Context, businessID, userID string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ? AND business_id = ?", userID, businessID).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, businessID, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).
		First(&u, "business_id = ? AND email = ?", businessID, strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByReferralCode(ctx context.Context, businessID, code string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).
		First(&u, "business_id = ? AND referral_code = ?", businessID, strings.ToUpper(strings.TrimSpace(code))).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) ListUsers(ctx context.Context, businessID string, limit, offset int) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *gormStore) TouchUser(ctx context.Context, userID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_active_at", at.UTC()).Error
}

func (s *gormStore) LogActivity(ctx context.Context, a *model.Activity) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *gormStore) ListActivity(ctx context.Context, businessID string, limit int) ([]model.Activity, error) {
	var entries []model.Activity
	if err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *gormStore) ListUserActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	var entries []model.Activity
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
