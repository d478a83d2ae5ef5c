package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AnswerRateLimit throttles challenge answer submissions per user (not per
// IP) so a security challenge cannot be brute-forced through the API.
// Requires the JWT middleware to have run first.
func AnswerRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			// Redis not configured, fail-open; the bounded attempt counter
			// in the verification service still caps total tries.
			c.Next()
			return
		}

		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "answer_rl:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-AnswerRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-AnswerRateLimit-Limit", strconv.Itoa(maxAttempts))
		c.Header("X-AnswerRateLimit-Remaining", strconv.FormatInt(maxRemaining(int64(maxAttempts), val), 10))

		if val > int64(maxAttempts) {
			RLBlocked.WithLabelValues("answers:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "answer rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("answers:" + c.FullPath()).Inc()
		c.Next()
	}
}

func maxRemaining(limit, used int64) int64 {
	if limit-used > 0 {
		return limit - used
	}
	return 0
}
