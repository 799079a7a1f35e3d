package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/availability"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/metrics"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/parse"
	"spa-booking-backend/internal/store"
)

const availabilityCache = "availability"

type availabilityResponse struct {
	LocationID string              `json:"locationId"`
	ServiceID  string              `json:"serviceId"`
	Date       string              `json:"date"`
	Slots      []availability.Slot `json:"slots"`
}

func availabilityKey(businessID, locationID, date, serviceID string) string {
	return cache.Key(availabilityCache, businessID, locationID, date, serviceID)
}

// invalidateAvailability drops cached slots of a location, optionally only
// for one date.
func (h *Handler) invalidateAvailability(ctx context.Context, businessID, locationID string, date ...string) {
	parts := append([]string{availabilityCache, businessID, locationID}, date...)
	if err := h.cache.InvalidatePrefix(ctx, cache.Prefix(parts...)); err != nil {
		h.log.Warnw("failed to invalidate availability cache", "location", locationID, "error", err)
	}
}

// computeSlots builds the slots of service at location on the given day.
func (h *Handler) computeSlots(ctx context.Context, locationID string, svc *model.Service, day time.Time) ([]availability.Slot, error) {
	var hours *availability.Hours
	bh, err := h.store.GetBusinessHours(ctx, locationID, day.Weekday())
	switch {
	case err == nil:
		hours = &availability.Hours{Open: bh.OpenMinute, Close: bh.CloseMinute, Closed: bh.Closed}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	bookings, err := h.store.ListBookingsBetween(ctx, locationID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	booked := make([]availability.Interval, len(bookings))
	for i, b := range bookings {
		booked[i] = availability.Interval{Start: b.StartsAt, End: b.EndsAt}
	}

	return availability.Slots(availability.Input{
		Day:      day,
		Hours:    hours,
		Duration: time.Duration(svc.DurationMinutes) * time.Minute,
		Step:     time.Duration(h.cfg.Booking.SlotStepMinutes) * time.Minute,
		Booked:   booked,
		Now:      h.now(),
	}), nil
}

// GetAvailability handles GET /api/bookings/availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	ctx := c.Request.Context()
	business := mw.BusinessFrom(c)

	locationID, serviceID, rawDate := c.Query("locationId"), c.Query("serviceId"), c.Query("date")
	if locationID == "" || serviceID == "" || rawDate == "" {
		badRequest(c, "locationId, serviceId and date are required")
		return
	}
	loc, err := parse.Location(business.Timezone)
	if err != nil {
		h.fail(c, err)
		return
	}
	day, err := parse.Date(rawDate, loc)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	date := day.Format(parse.DateLayout)

	if _, err := h.store.GetLocation(ctx, business.ID, locationID); err != nil {
		h.fail(c, err)
		return
	}
	svc, err := h.store.GetService(ctx, business.ID, serviceID)
	if err != nil {
		h.fail(c, err)
		return
	}

	key := availabilityKey(business.ID, locationID, date, serviceID)
	if raw, found, err := h.cache.Get(ctx, key); err != nil {
		h.log.Warnw("availability cache lookup failed", "key", key, "error", err)
	} else if found {
		metrics.Lookup(availabilityCache, true)
		c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
		return
	}
	metrics.Lookup(availabilityCache, false)

	slots, err := h.computeSlots(ctx, locationID, svc, day)
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := json.Marshal(availabilityResponse{
		LocationID: locationID,
		ServiceID:  serviceID,
		Date:       date,
		Slots:      slots,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.cache.Set(ctx, key, body, h.cfg.Cache.AvailabilityTTL); err != nil {
		h.log.Warnw("availability cache store failed", "key", key, "error", err)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type hoursDTO struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
	Closed  bool   `json:"closed"`
}

type putAvailabilityRequest struct {
	LocationID    string     `json:"locationId" binding:"required"`
	BusinessHours []hoursDTO `json:"businessHours"`
}

// toBusinessHours validates a weekly schedule.
func toBusinessHours(in []hoursDTO) ([]model.BusinessHours, error) {
	if len(in) > 7 {
		return nil, errors.New("at most 7 business hours entries are allowed")
	}
	seen := map[int]bool{}
	out := make([]model.BusinessHours, 0, len(in))
	for _, d := range in {
		if d.Weekday < 0 || d.Weekday > 6 {
			return nil, fmt.Errorf("weekday %d out of range 0..6", d.Weekday)
		}
		if seen[d.Weekday] {
			return nil, fmt.Errorf("weekday %d listed twice", d.Weekday)
		}
		seen[d.Weekday] = true

		bh := model.BusinessHours{Weekday: d.Weekday, Closed: d.Closed}
		if !d.Closed {
			open, err := parse.Clock(d.Open)
			if err != nil {
				return nil, err
			}
			closeAt, err := parse.Clock(d.Close)
			if err != nil {
				return nil, err
			}
			if open >= closeAt {
				return nil, fmt.Errorf("weekday %d: open must be before close", d.Weekday)
			}
			bh.OpenMinute, bh.CloseMinute = open, closeAt
		}
		out = append(out, bh)
	}
	return out, nil
}

func fromBusinessHours(in []model.BusinessHours) []hoursDTO {
	out := make([]hoursDTO, len(in))
	for i, bh := range in {
		out[i] = hoursDTO{Weekday: bh.Weekday, Closed: bh.Closed}
		if !bh.Closed {
			out[i].Open = parse.FormatClock(bh.OpenMinute)
			out[i].Close = parse.FormatClock(bh.CloseMinute)
		}
	}
	return out
}

// PutAvailability handles PUT /api/bookings/availability.
func (h *Handler) PutAvailability(c *gin.Context) {
	ctx := c.Request.Context()
	business := mw.BusinessFrom(c)

	var req putAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	hours, err := toBusinessHours(req.BusinessHours)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := h.store.GetLocation(ctx, business.ID, req.LocationID); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.ReplaceBusinessHours(ctx, req.LocationID, hours); err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateAvailability(ctx, business.ID, req.LocationID)

	c.JSON(http.StatusOK, gin.H{
		"locationId":    req.LocationID,
		"businessHours": fromBusinessHours(hours),
	})
}
