package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
)

// NewLimiter builds the per-IP limiter from the server settings.
func NewLimiter(srv config.ServerConfig) *mw.IPRateLimiter {
	return mw.NewIPRateLimiter(rate.Limit(srv.RateLimitPerSec), srv.RateLimitBurst)
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(d.Log), mw.Metrics())

	h := NewHandler(d)
	srv := d.Config.Server

	limiter := d.Limiter
	if limiter == nil {
		limiter = NewLimiter(srv)
	}
	rateLimiter := mw.RateLimiter(limiter)
	caching := mw.Cache(d.Cache, brandingCache, time.Duration(srv.CacheTTLSeconds)*time.Second, d.Log)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, mw.Tenant())
	{
		api.GET("/branding/:subdomain", caching, h.GetBranding)
		api.POST("/branding/validate-subdomain", h.ValidateSubdomain)
		api.GET("/push/vapid-public-key", h.GetVAPIDPublicKey)
	}

	tenant := api.Group("")
	tenant.Use(mw.RequireBusiness(d.Store))
	{
		tenant.GET("/bookings/availability", h.GetAvailability)
		tenant.POST("/auth/register", h.Register)
		tenant.POST("/auth/login", h.Login)
	}

	user := tenant.Group("")
	user.Use(mw.Auth(d.Tokens))
	{
		user.GET("/dashboard/data", h.GetDashboard)

		user.GET("/bookings/upcoming", h.GetUpcomingBookings)
		user.GET("/bookings/past", h.GetPastBookings)
		user.GET("/bookings/stats", h.GetBookingStats)
		user.POST("/bookings/create", h.CreateBooking)
		user.POST("/bookings/rate/:id", h.RateBooking)
		user.POST("/bookings/cancel/:id", h.CancelBooking)

		user.GET("/referral/my-stats", h.GetReferralStats)
		user.GET("/referral/leaderboard", h.GetReferralLeaderboard)

		user.GET("/rewards", h.GetRewards)
		user.GET("/rewards/my-rewards", h.GetMyRewards)
		user.GET("/user-rewards/balance", h.GetBalance)
		user.GET("/user-rewards/history", h.GetPointsHistory)
		user.POST("/user-rewards/redeem", h.RedeemReward)

		user.POST("/push/subscribe", h.Subscribe)
		user.POST("/push/unsubscribe", h.Unsubscribe)
		user.POST("/push/test", h.SendTestPush)
	}

	staff := user.Group("")
	staff.Use(mw.RequireRole(model.RoleStaff))
	{
		staff.PUT("/bookings/availability", h.PutAvailability)
		staff.GET("/spa-users", h.GetSpaUsers)
		staff.GET("/spa-users/activity", h.GetSpaUserActivity)
	}

	admin := user.Group("")
	admin.Use(mw.RequireRole(model.RoleAdmin))
	{
		admin.PUT("/branding", h.PutBranding)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}
