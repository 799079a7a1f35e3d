package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/auth"
	"spa-booking-backend/internal/model"
)

const claimsKey = "claims"

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token issued for the current business.
// It must run after RequireBusiness.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		b := BusinessFrom(c)
		if b == nil || b.ID != claims.BusinessID {
			abort(c, http.StatusForbidden, "token does not belong to this business")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects users below min with 403.
func RequireRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !claims.Role.AtLeast(min) {
			abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Auth.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
