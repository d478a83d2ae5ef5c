package handlers

import (
	"errors"
	"net/http"

	"txguardian/internal/oracle"
	"txguardian/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB            *pgxpool.Pool
	Verifications *service.VerificationService
	Notifications *service.NotificationService
}

func NewHandler(db *pgxpool.Pool, verifications *service.VerificationService, notifications *service.NotificationService) *Handler {
	return &Handler{
		DB:            db,
		Verifications: verifications,
		Notifications: notifications,
	}
}

// getUserID extracts the authenticated user id set by the JWT middleware
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, oracle.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not evaluate: challenge oracle unavailable, try again later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
