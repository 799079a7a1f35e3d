package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/availability"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/parse"
	"spa-booking-backend/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type createBookingRequest struct {
	LocationID string    `json:"locationId" binding:"required"`
	ServiceID  string    `json:"serviceId" binding:"required"`
	StartsAt   time.Time `json:"startsAt" binding:"required"`
}

type rateBookingRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"max=2048"`
}

// GetUpcomingBookings handles GET /api/bookings/upcoming.
func (h *Handler) GetUpcomingBookings(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	bookings, err := h.store.ListUpcomingBookings(c.Request.Context(), claims.UserID, h.now(),
		queryInt(c, "limit", defaultListLimit, maxListLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetPastBookings handles GET /api/bookings/past.
func (h *Handler) GetPastBookings(c *gin.Context) {
	claims := mw.ClaimsFrom(c)
	bookings, err := h.store.ListPastBookings(c.Request.Context(), claims.UserID, h.now(),
		queryInt(c, "limit", defaultListLimit, maxListLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBookingStats handles GET /api/bookings/stats.
func (h *Handler) GetBookingStats(c *gin.Context) {
	stats, err := h.store.BookingStats(c.Request.Context(), mw.ClaimsFrom(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateBooking handles POST /api/bookings/create. The requested start must
// still be an available slot when recomputed here.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "locationId, serviceId and startsAt are required")
		return
	}

	ctx := c.Request.Context()
	business := mw.BusinessFrom(c)
	claims := mw.ClaimsFrom(c)

	location, err := h.store.GetLocation(ctx, business.ID, req.LocationID)
	if err != nil {
		h.fail(c, err)
		return
	}
	svc, err := h.store.GetService(ctx, business.ID, req.ServiceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	loc, err := parse.Location(business.Timezone)
	if err != nil {
		h.fail(c, err)
		return
	}

	local := req.StartsAt.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	slots, err := h.computeSlots(ctx, location.ID, svc, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !availability.IsAvailable(slots, req.StartsAt) {
		c.JSON(http.StatusConflict, gin.H{"error": store.ErrSlotTaken.Error()})
		return
	}

	b := &model.Booking{
		BusinessID:    business.ID,
		LocationID:    location.ID,
		ServiceID:     svc.ID,
		UserID:        claims.UserID,
		StartsAt:      req.StartsAt,
		EndsAt:        req.StartsAt.Add(time.Duration(svc.DurationMinutes) * time.Minute),
		Status:        model.BookingConfirmed,
		PointsAwarded: svc.RewardPoints,
	}
	if err := h.store.CreateBooking(ctx, b); err != nil {
		h.fail(c, err)
		return
	}
	date := day.Format(parse.DateLayout)
	h.invalidateAvailability(ctx, business.ID, location.ID, date)

	h.notifier.Notify(claims.UserID, notification.Payload{
		Title: "Booking confirmed",
		Body:  fmt.Sprintf("%s at %s on %s %s", svc.Name, location.Name, date, local.Format("15:04")),
		URL:   "/bookings/upcoming",
		Tag:   "booking-" + b.ID,
	})

	location.Hours = nil
	b.Service = *svc
	b.Location = *location
	c.JSON(http.StatusCreated, b)
}

// RateBooking handles POST /api/bookings/rate/:id.
func (h *Handler) RateBooking(c *gin.Context) {
	var req rateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rating must be between 1 and 5")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetBooking(ctx, mw.BusinessFrom(c).ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	b, err := h.store.RateBooking(ctx, c.Param("id"), mw.ClaimsFrom(c).UserID, req.Rating, req.Review, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/cancel/:id.
func (h *Handler) CancelBooking(c *gin.Context) {
	ctx := c.Request.Context()
	business := mw.BusinessFrom(c)

	if _, err := h.store.GetBooking(ctx, business.ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	b, err := h.store.CancelBooking(ctx, c.Param("id"), mw.ClaimsFrom(c).UserID, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}

	date := b.StartsAt.Format(parse.DateLayout)
	if loc, err := parse.Location(business.Timezone); err == nil {
		date = b.StartsAt.In(loc).Format(parse.DateLayout)
	}
	h.invalidateAvailability(ctx, business.ID, b.LocationID, date)
	c.JSON(http.StatusOK, b)
}
