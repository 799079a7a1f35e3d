package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spa-booking-backend/internal/model"
)

func (s *gormStore) CreateReward(ctx context.Context, r *model.Reward) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) ListRewards(ctx context.Context, businessID string) ([]model.Reward, error) {
	var rewards []model.Reward
	if err := s.db.WithContext(ctx).
		Where("business_id = ? AND active = ?", businessID, true).
		Order("points_cost ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// RedeemReward spends the reward's cost from the user's balance and issues a
// voucher code. The debit only applies when the balance covers the cost.
func (s *gormStore) RedeemReward(ctx context.Context, businessID, userID, rewardID string, now time.Time) (*model.UserReward, error) {
	var ur model.UserReward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reward model.Reward
		if err := tx.First(&reward, "id = ? AND business_id = ? AND active = ?", rewardID, businessID, true).Error; err != nil {
			return notFound(err)
		}

		res := tx.Model(&model.User{}).
			Where("id = ? AND business_id = ? AND points_balance >= ?", userID, businessID, reward.PointsCost).
			Update("points_balance", gorm.Expr("points_balance - ?", reward.PointsCost))
		if res.Error != nil {
			return fmt.Errorf("failed to debit points: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		ur = model.UserReward{
			ID:          newID(),
			UserID:      userID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsCost,
			Code:        newCode(),
			Status:      model.UserRewardIssued,
			RedeemedAt:  now.UTC(),
		}
		if err := tx.Omit(clause.Associations).Create(&ur).Error; err != nil {
			return fmt.Errorf("failed to issue reward: %w", err)
		}
		ur.Reward = reward

		return tx.Create(&model.Activity{
			BusinessID: businessID,
			UserID:     userID,
			Action:     model.ActionRewardRedeemed,
			Detail:     reward.Name,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

func (s *gormStore) ListUserRewards(ctx context.Context, userID string) ([]model.UserReward, error) {
	var rewards []model.UserReward
	if err := s.db.WithContext(ctx).Preload("Reward").
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (s *gormStore) ReferralStats(ctx context.Context, userID string) (*ReferralStats, error) {
	var stats ReferralStats
	if err := s.db.WithContext(ctx).Model(&model.Referral{}).
		Select("COUNT(*) AS count, COALESCE(SUM(points_awarded), 0) AS points_earned").
		Where("referrer_id = ?", userID).
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate referrals: %w", err)
	}
	return &stats, nil
}

func (s *gormStore) ReferralLeaderboard(ctx context.Context, businessID string, limit int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := s.db.WithContext(ctx).Model(&model.Referral{}).
		Select("referrals.referrer_id AS user_id, users.name AS name, COUNT(*) AS referrals, COALESCE(SUM(referrals.points_awarded), 0) AS points").
		Joins("JOIN users ON users.id = referrals.referrer_id").
		Where("referrals.business_id = ?", businessID).
		Group("referrals.referrer_id, users.name").
		Order("referrals DESC, users.name ASC").
		Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to build referral leaderboard: %w", err)
	}
	return entries, nil
}
