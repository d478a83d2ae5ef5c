package handlers

import (
	"net/http"
	"strconv"

	"txguardian/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditEvents returns the caller's verification audit trail, newest
// first.
func (h *Handler) ListAuditEvents(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	repo := repository.NewAuditRepository(h.DB)
	logs, err := repo.GetByUserID(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": logs})
}
