package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/store"
	"spa-booking-backend/internal/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLookup map[string]*model.Business

func (f fakeLookup) GetBusinessBySubdomain(_ context.Context, subdomain string) (*model.Business, error) {
	if b, ok := f[subdomain]; ok {
		return b, nil
	}
	return nil, store.ErrNotFound
}

func serve(r *gin.Engine, method, target, host string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if host != "" {
		req.Host = host
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenant(t *testing.T) {
	r := gin.New()
	r.Use(Tenant())
	r.GET("/whoami", func(c *gin.Context) {
		fromGin, _ := TenantFrom(c)
		fromCtx, ok := tenant.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": fromGin, "ctx": fromCtx, "ok": ok})
	})

	tests := []struct {
		name   string
		host   string
		target string
		body   string
	}{
		{"subdomain host", "Glow.example.com:8443", "/whoami", `{"ctx":"glow","gin":"glow","ok":true}`},
		{"loopback override", "localhost:3000", "/whoami?subdomain=Glow", `{"ctx":"Glow","gin":"Glow","ok":true}`},
		{"apex host passes through", "example.com", "/whoami", `{"ctx":"","gin":"","ok":false}`},
		{"www passes through", "www.example.com", "/whoami", `{"ctx":"","gin":"","ok":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tt.target, tt.host, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestRequireBusiness(t *testing.T) {
	lookup := fakeLookup{"glow": {ID: "b1", Subdomain: "glow"}}
	r := gin.New()
	r.Use(Tenant(), RequireBusiness(lookup))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, BusinessFrom(c).ID)
	})

	w := serve(r, http.MethodGet, "/x", "glow.example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b1", w.Body.String())

	w = serve(r, http.MethodGet, "/x", "unknown.example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"business not found"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/x", "example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingLookup struct{}

func (failingLookup) GetBusinessBySubdomain(context.Context, string) (*model.Business, error) {
	return nil, errors.New("connection refused")
}

func TestRequireBusiness_LookupError(t *testing.T) {
	r := gin.New()
	r.Use(Tenant(), RequireBusiness(failingLookup{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", "glow.example.com", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestAuthAndRole(t *testing.T) {
	lookup := fakeLookup{
		"glow":  {ID: "b1", Subdomain: "glow"},
		"other": {ID: "b2", Subdomain: "other"},
	}
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", Issuer: "test", TokenTTL: time.Hour})
	require.NoError(t, err)

	customer, _, err := m.Issue(&model.User{ID: "u1", BusinessID: "b1", Role: model.RoleCustomer})
	require.NoError(t, err)
	staff, _, err := m.Issue(&model.User{ID: "u2", BusinessID: "b1", Role: model.RoleStaff})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Tenant(), RequireBusiness(lookup), Auth(m))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, ClaimsFrom(c).UserID) })
	r.GET("/staff", RequireRole(model.RoleStaff), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	bearer := func(token string) http.Header {
		return http.Header{"Authorization": []string{"Bearer " + token}}
	}

	w := serve(r, http.MethodGet, "/me", "glow.example.com", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", "glow.example.com", bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", "glow.example.com", bearer(customer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = serve(r, http.MethodGet, "/me", "other.example.com", bearer(customer))
	assert.Equal(t, http.StatusForbidden, w.Code, "token of another business")

	w = serve(r, http.MethodGet, "/staff", "glow.example.com", bearer(customer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/staff", "glow.example.com", bearer(staff))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCache(t *testing.T) {
	mem := cache.NewMemory(time.Minute, time.Minute)
	calls := 0

	r := gin.New()
	r.Use(Tenant())
	r.GET("/branding/:subdomain", Cache(mem, "branding", time.Minute, zap.NewNop().Sugar()), func(c *gin.Context) {
		calls++
		c.Header("X-Calls", "fresh")
		c.JSON(http.StatusOK, gin.H{"subdomain": c.Param("subdomain")})
	})
	r.GET("/missing", Cache(mem, "branding", time.Minute, zap.NewNop().Sugar()), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})

	first := serve(r, http.MethodGet, "/branding/glow", "glow.example.com", nil)
	second := serve(r, http.MethodGet, "/branding/glow", "glow.example.com", nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "fresh", second.Header().Get("X-Calls"))

	serve(r, http.MethodGet, "/branding/glow", "other.example.com", nil)
	assert.Equal(t, 2, calls, "tenants do not share entries")

	serve(r, http.MethodGet, "/branding/glow", "glow.example.com", http.Header{"Authorization": []string{"Bearer x"}})
	assert.Equal(t, 3, calls, "authenticated requests bypass the cache")

	require.NoError(t, mem.InvalidatePrefix(context.Background(), cache.Prefix("branding")))
	serve(r, http.MethodGet, "/branding/glow", "glow.example.com", nil)
	assert.Equal(t, 4, calls)

	serve(r, http.MethodGet, "/missing", "glow.example.com", nil)
	serve(r, http.MethodGet, "/missing", "glow.example.com", nil)
	assert.Equal(t, 6, calls, "errors are not cached")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)
	r := gin.New()
	r.Use(RateLimiter(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "", nil).Code)
	w := serve(r, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())

	assert.Equal(t, 1, limiter.Len())
	assert.Equal(t, 0, limiter.Prune(time.Hour))
	assert.Equal(t, 1, limiter.Prune(-time.Second))
	assert.Equal(t, 0, limiter.Len())
}

func TestIPRateLimiter_PruneEvery(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	limiter.GetLimiter("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.PruneEvery(ctx, 5*time.Millisecond, -time.Second)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestLoggerAndMetrics(t *testing.T) {
	r := gin.New()
	r.Use(Logger(zap.NewNop().Sugar()), Metrics())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/nope", "", nil).Code)
}
