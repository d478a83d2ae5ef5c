package handlers

import (
	"errors"
	"net/http"

	"txguardian/internal/repository"
	"txguardian/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type authRequest struct {
	Email string `json:"email"`
}

// Auth exchanges a known email for a bearer token. Real authentication is
// an upstream concern; this endpoint only establishes which user the
// verification endpoints act for.
func (h *Handler) Auth(c *gin.Context) {
	var req authRequest
	if err := c.BindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	repo := repository.NewUserRepository(h.DB)
	user, err := repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
		},
	})
}
