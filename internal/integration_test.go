package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/api"
	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/db"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/reminder"
	"spa-booking-backend/internal/store"
)

type delivered struct {
	endpoint string
	payload  notification.Payload
}

// recordingSender accepts every push and reports it on a channel.
type recordingSender struct {
	out chan delivered
}

func (s *recordingSender) Send(_ context.Context, payload []byte, sub *webpush.Subscription) (*http.Response, error) {
	var p notification.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	s.out <- delivered{endpoint: sub.Endpoint, payload: p}
	return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

func (s *recordingSender) next(t *testing.T) delivered {
	t.Helper()
	select {
	case d := <-s.out:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a push delivery")
		return delivered{}
	}
}

type system struct {
	router     *gin.Engine
	store      store.GormStore
	dispatcher *notification.Dispatcher
	sender     *recordingSender
	cfg        *config.Config
	location   model.Location
	service    model.Service
}

func newSystem(t *testing.T, now time.Time) *system {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	cfg := &config.Config{
		Server:     config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60},
		WorkerPool: config.WorkerPoolConfig{Size: 1, QueueSize: 16},
		Cache:      config.CacheConfig{AvailabilityTTL: time.Minute},
		Auth:       config.AuthConfig{JWTSecret: "integration-secret", Issuer: "spa", TokenTTL: time.Hour},
		Booking:    config.BookingConfig{SlotStepMinutes: 30},
		Reminder:   config.ReminderConfig{Enabled: true, Interval: time.Minute, LeadMinutes: 60},
	}
	tokens, err := auth.NewManager(cfg.Auth)
	require.NoError(t, err)

	s := &system{
		store:  store.NewGormStore(gormDB),
		sender: &recordingSender{out: make(chan delivered, 16)},
		cfg:    cfg,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.dispatcher = notification.NewDispatcher(cfg.WorkerPool, s.store, s.sender, log)
	s.dispatcher.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.dispatcher.Wait()
	})

	s.router = api.NewRouter(api.Deps{
		Store:         s.store,
		Subscriptions: s.store,
		Cache:         cache.NewMemory(time.Minute, time.Minute),
		Tokens:        tokens,
		Notifier:      s.dispatcher,
		Config:        cfg,
		Log:           log,
		Now:           func() time.Time { return now },
	})

	bg := context.Background()
	business := model.Business{Subdomain: "lotus", Name: "Lotus Spa", Timezone: "UTC"}
	require.NoError(t, s.store.CreateBusiness(bg, &business))
	s.location = model.Location{BusinessID: business.ID, Name: "Harbour"}
	require.NoError(t, s.store.CreateLocation(bg, &s.location))
	s.service = model.Service{BusinessID: business.ID, Name: "Facial", DurationMinutes: 30, RewardPoints: 10, Active: true}
	require.NoError(t, s.store.CreateService(bg, &s.service))

	var hours []model.BusinessHours
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours = append(hours, model.BusinessHours{Weekday: int(day), OpenMinute: 0, CloseMinute: 24*60 - 1})
	}
	require.NoError(t, s.store.ReplaceBusinessHours(bg, s.location.ID, hours))
	return s
}

func (s *system) call(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = "lotus.example.com"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// TestBookingLifecycle registers a customer, subscribes a browser, books a
// slot and follows the confirmation and reminder pushes to the sender.
func TestBookingLifecycle(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Hour)
	sys := newSystem(t, now)

	// Register and subscribe.
	w := sys.call(t, http.MethodPost, "/api/auth/register", gin.H{
		"name": "Mia", "email": "mia@example.com", "password": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))

	endpoint := "https://push.example.com/send/mia"
	w = sys.call(t, http.MethodPost, "/api/push/subscribe", gin.H{
		"endpoint": endpoint,
		"keys":     gin.H{"p256dh": "p256dh-key", "auth": "auth-secret"},
	}, registered.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Book a slot; the confirmation goes out through the worker pool.
	startsAt := now.Add(time.Hour)
	w = sys.call(t, http.MethodPost, "/api/bookings/create", gin.H{
		"locationId": sys.location.ID,
		"serviceId":  sys.service.ID,
		"startsAt":   startsAt.Format(time.RFC3339),
	}, registered.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))

	got := sys.sender.next(t)
	assert.Equal(t, endpoint, got.endpoint)
	assert.Equal(t, "Booking confirmed", got.payload.Title)

	assert.Eventually(t, func() bool {
		subs, err := sys.store.ActiveSubscriptions(context.Background(), registered.User.ID)
		return err == nil && len(subs) == 1 && subs[0].LastUsedAt != nil
	}, 5*time.Second, 20*time.Millisecond, "successful delivery touches the subscription")

	// The booking is due within the reminder window measured from real time.
	rem := reminder.NewService(sys.cfg.Reminder, sys.store, sys.dispatcher, zap.NewNop().Sugar())
	if time.Until(startsAt) > 0 {
		assert.Equal(t, 1, rem.RunOnce(context.Background()))
		got = sys.sender.next(t)
		assert.Equal(t, "Upcoming appointment", got.payload.Title)
		assert.Equal(t, "reminder-"+booking.ID, got.payload.Tag)

		assert.Equal(t, 0, rem.RunOnce(context.Background()), "a reminder is sent once")
	}

	// Cancelling frees the slot and revokes the points.
	w = sys.call(t, http.MethodPost, "/api/bookings/cancel/"+booking.ID, nil, registered.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = sys.call(t, http.MethodGet, "/api/user-rewards/balance", nil, registered.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pointsBalance":0}`, w.Body.String())

	w = sys.call(t, http.MethodPost, "/api/bookings/create", gin.H{
		"locationId": sys.location.ID,
		"serviceId":  sys.service.ID,
		"startsAt":   startsAt.Format(time.RFC3339),
	}, registered.Token)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

// TestGoneSubscriptionIsDeactivated covers a push service reporting the
// endpoint as gone: the row is kept but no longer targeted.
func TestGoneSubscriptionIsDeactivated(t *testing.T) {
	sys := newSystem(t, time.Now().UTC())
	ctx := context.Background()

	user := &model.User{BusinessID: sys.location.BusinessID, Email: "leo@example.com", Name: "Leo", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, sys.store.RegisterUser(ctx, user, nil))
	sub := &model.PushSubscription{UserID: user.ID, Endpoint: "https://push.example.com/gone", P256DH: "k", Auth: "a"}
	require.NoError(t, sys.store.SaveSubscription(ctx, sub))

	gone := notification.NewDispatcher(sys.cfg.WorkerPool, sys.store, senderFunc(func() (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusGone, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}), zap.NewNop().Sugar())

	res := gone.Deliver(ctx, notification.Job{UserID: user.ID, Payload: notification.Payload{Title: "hello"}})
	assert.Equal(t, notification.Result{Failed: 1}, res)

	subs, err := sys.store.ActiveSubscriptions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	var count int64
	require.NoError(t, sys.store.DB().Model(&model.PushSubscription{}).Where("id = ?", sub.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

type senderFunc func() (*http.Response, error)

func (f senderFunc) Send(context.Context, []byte, *webpush.Subscription) (*http.Response, error) {
	return f()
}
