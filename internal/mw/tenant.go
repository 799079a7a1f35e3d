package mw

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/store"
	"spa-booking-backend/internal/tenant"
)

const (
	tenantKey   = "tenant"
	businessKey = "business"
)

// Tenant resolves the tenant subdomain from the Host header (or the
// subdomain query parameter on loopback hosts) and stores it in both the
// request context and the gin context. It never rejects a request.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := tenant.Resolve(c.Request.Host, c.Query(tenant.QueryParam)); ok {
			c.Set(tenantKey, id)
			c.Request = c.Request.WithContext(tenant.NewContext(c.Request.Context(), id))
		}
		c.Next()
	}
}

// TenantFrom returns the resolved subdomain, if any.
func TenantFrom(c *gin.Context) (string, bool) {
	id := c.GetString(tenantKey)
	return id, id != ""
}

// BusinessLookup finds a business by subdomain.
type BusinessLookup interface {
	GetBusinessBySubdomain(ctx context.Context, subdomain string) (*model.Business, error)
}

// RequireBusiness loads the business of the resolved tenant and answers 404
// when there is none. Lookup failures answer 500.
func RequireBusiness(lookup BusinessLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		subdomain, ok := TenantFrom(c)
		if !ok {
			abort(c, http.StatusNotFound, "business not found")
			return
		}
		b, err := lookup.GetBusinessBySubdomain(c.Request.Context(), subdomain)
		if errors.Is(err, store.ErrNotFound) {
			abort(c, http.StatusNotFound, "business not found")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		c.Set(businessKey, b)
		c.Next()
	}
}

// BusinessFrom returns the business loaded by RequireBusiness.
func BusinessFrom(c *gin.Context) *model.Business {
	if v, ok := c.Get(businessKey); ok {
		if b, ok := v.(*model.Business); ok {
			return b
		}
	}
	return nil
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
