package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/db"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testHost = "glow.example.com"

type fakeNotifier struct {
	mu       sync.Mutex
	notified []notification.Job
	result   notification.Result
}

func (f *fakeNotifier) Notify(userID string, p notification.Payload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, notification.Job{UserID: userID, Payload: p})
	return true
}

func (f *fakeNotifier) Deliver(_ context.Context, job notification.Job) notification.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, job)
	return f.result
}

type testEnv struct {
	t        *testing.T
	router   *gin.Engine
	store    store.GormStore
	cache    *cache.Memory
	notifier *fakeNotifier
	tokens   *auth.Manager
	clock    time.Time

	business model.Business
	location model.Location
	service  model.Service
}

// monday is 2030-01-07, a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2030, 1, 7, hour, minute, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	cfg := &config.Config{
		Server:   config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60},
		Push:     config.PushConfig{PublicKey: "test-public-key"},
		Cache:    config.CacheConfig{AvailabilityTTL: time.Minute},
		Auth:     config.AuthConfig{JWTSecret: "test-secret", Issuer: "test", TokenTTL: time.Hour},
		Booking:  config.BookingConfig{SlotStepMinutes: 30},
		Referral: config.ReferralConfig{ReferrerPoints: 50, RefereePoints: 25, LeaderboardLimit: 10},
	}
	tokens, err := auth.NewManager(cfg.Auth)
	require.NoError(t, err)

	env := &testEnv{
		t:        t,
		store:    store.NewGormStore(gormDB),
		cache:    cache.NewMemory(time.Minute, time.Minute),
		notifier: &fakeNotifier{},
		tokens:   tokens,
		clock:    monday(8, 0),
	}
	env.router = NewRouter(Deps{
		Store:         env.store,
		Subscriptions: env.store,
		Cache:         env.cache,
		Tokens:        tokens,
		Notifier:      env.notifier,
		Config:        cfg,
		Log:           zap.NewNop().Sugar(),
		Now:           func() time.Time { return env.clock },
	})
	env.seed()
	return env
}

func (e *testEnv) seed() {
	ctx := context.Background()
	e.business = model.Business{Subdomain: "glow", Name: "Glow Spa", Timezone: "UTC", PrimaryColor: "#112233"}
	require.NoError(e.t, e.store.CreateBusiness(ctx, &e.business))

	e.location = model.Location{BusinessID: e.business.ID, Name: "Downtown"}
	require.NoError(e.t, e.store.CreateLocation(ctx, &e.location))

	e.service = model.Service{BusinessID: e.business.ID, Name: "Massage", DurationMinutes: 60, PriceCents: 9000, RewardPoints: 20, Active: true}
	require.NoError(e.t, e.store.CreateService(ctx, &e.service))

	require.NoError(e.t, e.store.ReplaceBusinessHours(ctx, e.location.ID, []model.BusinessHours{
		{Weekday: int(time.Monday), OpenMinute: 9 * 60, CloseMinute: 12 * 60},
	}))
}

// userToken creates a user with the given role directly in the store.
func (e *testEnv) userToken(email string, role model.Role) (string, *model.User) {
	u := &model.User{BusinessID: e.business.ID, Email: email, Name: email, PasswordHash: "x", Role: role}
	require.NoError(e.t, e.store.RegisterUser(context.Background(), u, nil))
	token, _, err := e.tokens.Issue(u)
	require.NoError(e.t, err)
	return token, u
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	return e.doHost(testHost, method, path, body, token)
}

func (e *testEnv) doHost(host, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = host
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndVAPID(t *testing.T) {
	env := newTestEnv(t)

	w := env.doHost("example.com", http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.doHost("example.com", http.MethodGet, "/api/push/vapid-public-key", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"publicKey":"test-public-key"}`, w.Body.String())

	w = env.doHost("example.com", http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}
