package http

import (
	"os"
	"strconv"
	"time"

	"txguardian/internal/http/handlers"
	"txguardian/internal/http/middleware"
	"txguardian/internal/service"
	"txguardian/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the verification API onto the gin engine.
func RegisterRoutes(
	r *gin.Engine,
	db *pgxpool.Pool,
	verifications *service.VerificationService,
	notifications *service.NotificationService,
	hub *ws.Hub,
	version string,
) {
	h := handlers.NewHandler(db, verifications, notifications)
	healthHandler := handlers.NewHealthHandler(db, version)

	// read limits from env, with safe defaults
	apiRateLimit := envIntDefault("API_RATE_LIMIT", 60)
	apiRateWindow := envSecondsDefault("API_RATE_WINDOW_SECONDS", time.Minute)

	answerRateLimit := envIntDefault("ANSWER_RATE_LIMIT", 10)
	answerRateWindow := envSecondsDefault("ANSWER_RATE_WINDOW_SECONDS", time.Minute)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	v1.POST("/auth", h.Auth)

	v1.POST("/transactions", middleware.JWT(), h.CreateTransaction)
	v1.GET("/transactions", middleware.JWT(), h.ListTransactions)
	v1.GET("/transactions/:id", middleware.JWT(), h.GetTransaction)
	v1.POST("/transactions/:id/approve", middleware.JWT(), h.ApproveTransaction)
	v1.POST("/transactions/:id/verify", middleware.JWT(), h.RequestVerification)
	v1.POST("/transactions/:id/answers",
		middleware.JWT(),
		middleware.AnswerRateLimit(answerRateLimit, answerRateWindow),
		h.SubmitAnswers)

	v1.GET("/notifications", middleware.JWT(), h.ListNotifications)
	v1.POST("/notifications/:id/read", middleware.JWT(), h.MarkNotificationRead)

	v1.GET("/audit", middleware.JWT(), h.ListAuditEvents)

	// Live notification stream
	r.GET("/ws/notifications", ws.HandleWS(hub))
}

func envIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envSecondsDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
