package handler

import (
	"net/http"
	"strconv"

	"realtime-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallHandler exposes the persisted call history over REST; live call
// control happens exclusively on the WebSocket.
type CallHandler struct {
	callRepo repository.CallRepository
	logger   *zap.Logger
}

func NewCallHandler(callRepo repository.CallRepository, logger *zap.Logger) *CallHandler {
	return &CallHandler{
		callRepo: callRepo,
		logger:   logger,
	}
}

// GetHistory returns the authenticated user's calls, newest first.
func (h *CallHandler) GetHistory(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	calls, total, err := h.callRepo.GetHistoryByUser(userID.(uuid.UUID), limit, offset)
	if err != nil {
		h.logger.Error("failed to load call history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load call history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calls":  calls,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
