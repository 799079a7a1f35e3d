package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/mw"
)

type redeemRequest struct {
	RewardID string `json:"rewardId" binding:"required"`
}

// GetRewards handles GET /api/rewards.
func (h *Handler) GetRewards(c *gin.Context) {
	rewards, err := h.store.ListRewards(c.Request.Context(), mw.BusinessFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// GetMyRewards handles GET /api/rewards/my-rewards.
func (h *Handler) GetMyRewards(c *gin.Context) {
	rewards, err := h.store.ListUserRewards(c.Request.Context(), mw.ClaimsFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// GetBalance handles GET /api/user-rewards/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"pointsBalance": u.PointsBalance})
}

// GetPointsHistory handles GET /api/user-rewards/history.
func (h *Handler) GetPointsHistory(c *gin.Context) {
	entries, err := h.store.ListUserActivity(c.Request.Context(), mw.ClaimsFrom(c).UserID,
		queryInt(c, "limit", defaultListLimit, maxListLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// RedeemReward handles POST /api/user-rewards/redeem.
func (h *Handler) RedeemReward(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rewardId is required")
		return
	}
	ur, err := h.store.RedeemReward(c.Request.Context(), mw.BusinessFrom(c).ID, mw.ClaimsFrom(c).UserID, req.RewardID, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ur)
}

// GetReferralStats handles GET /api/referral/my-stats.
func (h *Handler) GetReferralStats(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	stats, err := h.store.ReferralStats(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"referralCode": u.ReferralCode,
		"count":        stats.Count,
		"pointsEarned": stats.PointsEarned,
	})
}

// GetReferralLeaderboard handles GET /api/referral/leaderboard.
func (h *Handler) GetReferralLeaderboard(c *gin.Context) {
	limit := queryInt(c, "limit", h.cfg.Referral.LeaderboardLimit, maxListLimit)
	entries, err := h.store.ReferralLeaderboard(c.Request.Context(), mw.BusinessFrom(c).ID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
