// Package reminder periodically pushes reminders for bookings about to start.
package reminder

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/metrics"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/notification"
)

// Store is the subset of store.Store the reminder loop needs.
type Store interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	MarkReminderSent(ctx context.Context, bookingID string, at time.Time) error
}

// Notifier queues a push for a user.
type Notifier interface {
	Notify(userID string, p notification.Payload) bool
}

// Service finds due bookings and hands reminders to the notifier.
type Service struct {
	cfg      config.ReminderConfig
	store    Store
	notifier Notifier
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewService creates a reminder service.
func NewService(cfg config.ReminderConfig, store Store, notifier Notifier, log *zap.SugaredLogger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Run sends reminders every configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("Reminders are disabled. Not starting.")
		return
	}
	s.log.Infow("Starting reminder service", "interval", s.cfg.Interval, "leadMinutes", s.cfg.LeadMinutes)

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reminder service shutting down.")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunOnce performs a single round and returns the number of reminders queued.
// Bookings whose reminder could not be queued stay due for the next round.
func (s *Service) RunOnce(ctx context.Context) int {
	now := s.now().UTC()
	lead := time.Duration(s.cfg.LeadMinutes) * time.Minute

	bookings, err := s.store.DueReminders(ctx, now, now.Add(lead))
	if err != nil {
		s.log.Errorw("failed to load due reminders", "error", err)
		return 0
	}

	sent := 0
	for i := range bookings {
		b := &bookings[i]
		if !s.notifier.Notify(b.UserID, payloadFor(b, now)) {
			continue
		}
		if err := s.store.MarkReminderSent(ctx, b.ID, now); err != nil {
			s.log.Errorw("failed to mark reminder sent", "booking", b.ID, "error", err)
			continue
		}
		sent++
		metrics.RemindersSent.Inc()
	}
	if sent > 0 {
		s.log.Infow("Booking reminders dispatched", "count", sent)
	}
	return sent
}

func payloadFor(b *model.Booking, now time.Time) notification.Payload {
	minutes := int(math.Ceil(b.StartsAt.Sub(now).Minutes()))
	name := b.Service.Name
	if name == "" {
		name = "Your appointment"
	}
	body := fmt.Sprintf("%s starts in %d minutes", name, minutes)
	if b.Location.Name != "" {
		body += " at " + b.Location.Name
	}
	return notification.Payload{
		Title: "Upcoming appointment",
		Body:  body,
		URL:   "/bookings/upcoming",
		Tag:   "reminder-" + b.ID,
	}
}
