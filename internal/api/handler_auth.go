package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/store"
)

type registerRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	ReferralCode string `json:"referralCode"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *model.User) {
	token, expires, err := h.tokens.Issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, tokenResponse{Token: token, ExpiresAt: expires, User: u})
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, a valid email and password are required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		badRequest(c, "password must be at least 8 characters")
		return
	}
	if len(req.Password) > auth.MaxPasswordLength {
		badRequest(c, "password must be at most 72 bytes")
		return
	}

	ctx := c.Request.Context()
	business := mw.BusinessFrom(c)

	var grant *store.ReferralGrant
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		referrer, err := h.store.GetUserByReferralCode(ctx, business.ID, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				badRequest(c, "invalid referral code")
				return
			}
			h.fail(c, err)
			return
		}
		grant = &store.ReferralGrant{
			ReferrerID:     referrer.ID,
			ReferrerPoints: h.cfg.Referral.ReferrerPoints,
			RefereePoints:  h.cfg.Referral.RefereePoints,
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	u := &model.User{
		BusinessID:   business.ID,
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         model.RoleCustomer,
	}
	if err := h.store.RegisterUser(ctx, u, grant); err != nil {
		h.fail(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, u)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	u, err := h.store.GetUserByEmail(ctx, mw.BusinessFrom(c).ID, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err)
		return
	}
	if u == nil || auth.CheckPassword(u.PasswordHash, req.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := h.store.TouchUser(ctx, u.ID, h.now()); err != nil {
		h.log.Warnw("failed to record login", "user", u.ID, "error", err)
	}
	h.respondWithToken(c, http.StatusOK, u)
}
