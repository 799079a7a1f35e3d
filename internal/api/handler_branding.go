package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/cache"
	"spa-booking-backend/internal/model"
	"spa-booking-backend/internal/mw"
	"spa-booking-backend/internal/store"
)

const brandingCache = "branding"

var (
	subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])$`)
	colorRe     = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

	reservedSubdomains = map[string]bool{
		"www": true, "api": true, "admin": true, "app": true, "mail": true, "static": true,
	}
)

type brandingResponse struct {
	Subdomain      string `json:"subdomain"`
	Name           string `json:"name"`
	LogoURL        string `json:"logoUrl"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	Tagline        string `json:"tagline"`
}

func toBranding(b *model.Business) brandingResponse {
	return brandingResponse{
		Subdomain:      b.Subdomain,
		Name:           b.Name,
		LogoURL:        b.LogoURL,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		Tagline:        b.Tagline,
	}
}

// GetBranding handles GET /api/branding/:subdomain.
func (h *Handler) GetBranding(c *gin.Context) {
	b, err := h.store.GetBusinessBySubdomain(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "business not found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toBranding(b))
}

type validateSubdomainRequest struct {
	Subdomain string `json:"subdomain" binding:"required"`
}

type validateSubdomainResponse struct {
	Subdomain string `json:"subdomain"`
	Valid     bool   `json:"valid"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// checkSubdomainFormat returns the reason a subdomain is unusable, or "".
func checkSubdomainFormat(subdomain string) string {
	switch {
	case !subdomainRe.MatchString(subdomain):
		return "subdomain must be 3-63 lowercase letters, digits or hyphens and may not start or end with a hyphen"
	case reservedSubdomains[subdomain]:
		return "subdomain is reserved"
	}
	return ""
}

// ValidateSubdomain handles POST /api/branding/validate-subdomain.
func (h *Handler) ValidateSubdomain(c *gin.Context) {
	var req validateSubdomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	resp := validateSubdomainResponse{Subdomain: subdomain}

	if reason := checkSubdomainFormat(subdomain); reason != "" {
		resp.Reason = reason
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Valid = true

	taken, err := h.store.SubdomainTaken(c.Request.Context(), subdomain)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Available = !taken
	if taken {
		resp.Reason = "subdomain is already taken"
	}
	c.JSON(http.StatusOK, resp)
}

// PutBranding handles PUT /api/branding.
func (h *Handler) PutBranding(c *gin.Context) {
	var req store.Branding
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		badRequest(c, "name must not be empty")
		return
	}
	for _, color := range []*string{req.PrimaryColor, req.SecondaryColor} {
		if color != nil && *color != "" && !colorRe.MatchString(*color) {
			badRequest(c, "colors must be hex values like #1a2b3c")
			return
		}
	}

	ctx := c.Request.Context()
	b, err := h.store.UpdateBranding(ctx, mw.BusinessFrom(c).ID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.cache.InvalidatePrefix(ctx, cache.Prefix(brandingCache)); err != nil {
		h.log.Warnw("failed to invalidate branding cache", "error", err)
	}
	c.JSON(http.StatusOK, toBranding(b))
}
