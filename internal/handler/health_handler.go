package handler

import (
	"context"
	"net/http"
	"time"

	"realtime-service/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis *redis.Client
}

func NewHealthHandler(redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{redis: redisClient}
}

// Health is the liveness probe; it answers as long as the process runs.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "realtime-service",
	})
}

// Ready is the readiness probe: the database must be connected, redis is
// reported but optional since the service degrades to single-instance mode
// without it.
func (h *HealthHandler) Ready(c *gin.Context) {
	dbConnected := database.IsConnected()

	redisConnected := false
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		redisConnected = h.redis.Ping(ctx).Err() == nil
	}

	status := http.StatusOK
	readiness := "ready"
	if !dbConnected {
		status = http.StatusServiceUnavailable
		readiness = "not ready"
	}

	c.JSON(status, gin.H{
		"status": readiness,
		"checks": gin.H{
			"database": dbConnected,
			"redis":    redisConnected,
		},
	})
}
