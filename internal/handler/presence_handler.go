package handler

import (
	"errors"
	"net/http"

	"realtime-service/internal/service"
	"realtime-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceHandler answers presence reads over REST for services that do
// not hold a WebSocket connection. The live connection registry is the
// source of truth for "online now"; the store supplies lastSeen.
type PresenceHandler struct {
	hub      *ws.Hub
	presence service.PresenceService
	logger   *zap.Logger
}

func NewPresenceHandler(hub *ws.Hub, presence service.PresenceService, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{
		hub:      hub,
		presence: presence,
		logger:   logger,
	}
}

// GetOnlineUsers lists users with at least one active connection.
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	users, err := h.presence.GetOnline(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list online users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load online users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": h.hub.OnlineCount(),
	})
}

// GetUserStatus reports one user's presence, combining the live registry
// with the persisted lastSeen.
func (h *PresenceHandler) GetUserStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	isOnline := h.hub.IsOnline(userID)
	resp := gin.H{
		"userId":   userID,
		"isOnline": isOnline,
	}

	presence, err := h.presence.GetStatus(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Warn("failed to load persisted presence",
			zap.String("userId", userID.String()), zap.Error(err))
	}
	if presence != nil && !isOnline {
		resp["lastSeen"] = presence.LastSeen
	}

	c.JSON(http.StatusOK, resp)
}
