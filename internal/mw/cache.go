package mw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/metrics"
)

type cachedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseKey is the cache key of a response cached under name.
func ResponseKey(name, tenantID, uri string) string {
	return cache.Key(name, tenantID, uri)
}

// Cache caches successful GET responses under name, keyed by tenant and
// request URI. Requests carrying credentials are never cached.
func Cache(store cache.Cache, name string, ttl time.Duration, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		tenantID, _ := TenantFrom(c)
		key := ResponseKey(name, tenantID, c.Request.RequestURI)
		ctx := c.Request.Context()

		if raw, found, err := store.Get(ctx, key); err != nil {
			log.Warnw("response cache lookup failed", "key", key, "error", err)
		} else if found {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.Lookup(name, true)
				for k, v := range cached.Headers {
					c.Writer.Header()[k] = v
				}
				c.Writer.WriteHeader(cached.Status)
				c.Writer.Write(cached.Body)
				c.Abort()
				return
			}
		}
		metrics.Lookup(name, false)

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			raw, err := json.Marshal(cachedResponse{
				Status:  blw.Status(),
				Headers: blw.Header().Clone(),
				Body:    blw.body.Bytes(),
			})
			if err == nil {
				err = store.Set(ctx, key, raw, ttl)
			}
			if err != nil {
				log.Warnw("response cache store failed", "key", key, "error", err)
			}
		}
	}
}
