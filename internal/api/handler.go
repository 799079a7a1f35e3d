package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spa-booking-backend/config"
	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/notification"
	"spa-booking-backend/internal/store"
)

// Notifier is the push side of the API.
type Notifier interface {
	Notify(userID string, p notification.Payload) bool
	Deliver(ctx context.Context, job notification.Job) notification.Result
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Store         store.Store
	Subscriptions store.SubscriptionStore
	Cache         cache.Cache
	Tokens        *auth.Manager
	Notifier      Notifier
	Config        *config.Config
	Log           *zap.SugaredLogger
	// Limiter defaults to one built from Config.Server.
	Limiter *mw.IPRateLimiter
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	subs     store.SubscriptionStore
	cache    cache.Cache
	tokens   *auth.Manager
	notifier Notifier
	cfg      *config.Config
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:    d.Store,
		subs:     d.Subscriptions,
		cache:    d.Cache,
		tokens:   d.Tokens,
		notifier: d.Notifier,
		cfg:      d.Config,
		log:      d.Log,
		now:      now,
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps store errors to their HTTP status.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrDuplicateUser),
		errors.Is(err, store.ErrDuplicateSubscription),
		errors.Is(err, store.ErrSlotTaken),
		errors.Is(err, store.ErrAlreadyRated),
		errors.Is(err, store.ErrNotCancellable),
		errors.Is(err, store.ErrInsufficientPoints):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrNotRatable):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		_ = c.Error(err)
		h.log.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// currentUser loads the authenticated user of the current business.
func (h *Handler) currentUser(c *gin.Context) (*model.User, bool) {
	claims := mw.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return nil, false
	}
	u, err := h.store.GetUser(c.Request.Context(), claims.BusinessID, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
			return nil, false
		}
		h.fail(c, err)
		return nil, false
	}
	return u, true
}

// queryInt reads a positive integer query parameter, clamped to max.
func queryInt(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
