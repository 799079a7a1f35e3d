package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/store"
)

type subscriptionKeys struct {
	P256DH string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

// subscribeRequest mirrors the browser's PushSubscription.toJSON() plus an
// optional device type.
type subscribeRequest struct {
	Endpoint   string           `json:"endpoint" binding:"required,url"`
	Keys       subscriptionKeys `json:"keys" binding:"required"`
	DeviceType string           `json:"deviceType" binding:"max=32"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// Subscribe handles POST /api/push/subscribe. Re-subscribing the same
// endpoint refreshes its keys and reactivates it.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	sub := &model.PushSubscription{
		UserID:     mw.ClaimsFrom(c).UserID,
		Endpoint:   req.Endpoint,
		P256DH:     req.Keys.P256DH,
		Auth:       req.Keys.Auth,
		UserAgent:  truncate(c.Request.UserAgent(), 512),
		DeviceType: deviceType(req.DeviceType, c.Request.UserAgent()),
	}
	if err := h.subs.SaveSubscription(c.Request.Context(), sub); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe handles POST /api/push/unsubscribe. The subscription is
// deactivated, not deleted.
func (h *Handler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint is required")
		return
	}
	err := h.subs.DeactivateSubscription(c.Request.Context(), mw.ClaimsFrom(c).UserID, req.Endpoint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendTestPush handles POST /api/push/test and reports the delivery result.
func (h *Handler) SendTestPush(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res := h.notifier.Deliver(ctx, notification.Job{
		UserID: mw.ClaimsFrom(c).UserID,
		Payload: notification.Payload{
			Title: "Test notification",
			Body:  "Push notifications are working.",
			URL:   "/",
			Tag:   "test",
		},
	})
	c.JSON(http.StatusOK, res)
}

func deviceType(declared, userAgent string) string {
	if declared != "" {
		return declared
	}
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "mobile"
	case ua == "":
		return "unknown"
	}
	return "desktop"
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
