package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/model"
)

type dashboardResponse struct {
	User          *model.User    `json:"user"`
	PointsBalance int            `json:"pointsBalance"`
	NextBooking   *model.Booking `json:"nextBooking"`
	UpcomingCount int64          `json:"upcomingCount"`
	RewardsCount  int            `json:"rewardsCount"`
	ReferralCount int64          `json:"referralCount"`
}

// GetDashboard handles GET /api/dashboard/data.
func (h *Handler) GetDashboard(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	now := h.now()

	resp := dashboardResponse{User: u, PointsBalance: u.PointsBalance}

	next, err := h.store.ListUpcomingBookings(ctx, u.ID, now, 1)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(next) > 0 {
		resp.NextBooking = &next[0]
	}
	if resp.UpcomingCount, err = h.store.CountUpcomingBookings(ctx, u.ID, now); err != nil {
		h.fail(c, err)
		return
	}
	rewards, err := h.store.ListUserRewards(ctx, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.RewardsCount = len(rewards)
	referrals, err := h.store.ReferralStats(ctx, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.ReferralCount = referrals.Count

	if err := h.store.TouchUser(ctx, u.ID, now); err != nil {
		h.log.Warnw("failed to touch user", "user", u.ID, "error", err)
	}
	c.JSON(http.StatusOK, resp)
}
