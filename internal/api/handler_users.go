package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spa-booking-backend/internal/mw"
)

// GetSpaUsers handles GET /api/spa-users.
func (h *Handler) GetSpaUsers(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit, maxListLimit)
	offset := queryInt(c, "offset", 0, 1<<20)
	users, err := h.store.ListUsers(c.Request.Context(), mw.BusinessFrom(c).ID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "limit": limit, "offset": offset})
}

// GetSpaUserActivity handles GET /api/spa-users/activity.
func (h *Handler) GetSpaUserActivity(c *gin.Context) {
	entries, err := h.store.ListActivity(c.Request.Context(), mw.BusinessFrom(c).ID,
		queryInt(c, "limit", defaultListLimit*2, maxListLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
