package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"realtime-service/internal/client"
	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/internal/domain"
	"realtime-service/internal/middleware"
	"realtime-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway is the connection lifecycle handler: it authenticates the
// handshake, wires each connection into the hub and dispatches its events.
type Gateway struct {
	logger    *zap.Logger
	hub       *Hub
	validator middleware.TokenValidator
	messages  service.MessageService
	calls     service.CallService
	presence  service.PresenceService
	noti      client.NotificationDispatcher
	cfg       config.WSConfig

	callMu        sync.Mutex
	pendingOffers map[uuid.UUID]json.RawMessage
	ringTimers    map[uuid.UUID]*time.Timer
}

func NewGateway(
	logger *zap.Logger,
	hub *Hub,
	validator middleware.TokenValidator,
	messages service.MessageService,
	calls service.CallService,
	presence service.PresenceService,
	noti client.NotificationDispatcher,
	cfg config.WSConfig,
) *Gateway {
	return &Gateway{
		logger:        logger,
		hub:           hub,
		validator:     validator,
		messages:      messages,
		calls:         calls,
		presence:      presence,
		noti:          noti,
		cfg:           cfg,
		pendingOffers: make(map[uuid.UUID]json.RawMessage),
		ringTimers:    make(map[uuid.UUID]*time.Timer),
	}
}

// Run drives the typing TTL sweeper until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	ttl := g.cfg.TypingTTL()
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweepTyping(ttl)
		}
	}
}

// HandleWebSocket authenticates and upgrades a new connection. An invalid
// or missing bearer credential refuses the connection before any event
// handler is registered.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if authHeader := c.GetHeader("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	userID, err := g.validator.ValidateToken(ctx, token)
	if err != nil {
		g.logger.Warn("handshake rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(g, userID, conn)
	g.connect(client)

	go client.writePump()
	go client.readPump()
}

// connect registers the connection; the user's first connection flips
// presence to online and broadcasts the transition.
func (g *Gateway) connect(client *Client) {
	first := g.hub.Register(client)
	middleware.RecordWebSocketConnection()

	g.logger.Info("client connected",
		zap.String("userId", client.userID.String()),
		zap.String("connId", client.id.String()),
		zap.Bool("firstConnection", first))

	if first {
		if err := g.presence.SetOnline(context.Background(), client.userID); err != nil {
			g.logger.Warn("failed to persist online transition", zap.Error(err))
		}
		g.broadcastPresence(client.userID, true)
	}
}

// disconnect removes only this connection. When the user's last connection
// goes, presence flips offline (lastSeen persisted), their typing entries
// are purged with stop-typing emitted to each affected room, and a single
// offline broadcast fires.
func (g *Gateway) disconnect(client *Client) {
	wentOffline := g.hub.Unregister(client)
	middleware.RecordWebSocketDisconnection()

	g.logger.Info("client disconnected",
		zap.String("userId", client.userID.String()),
		zap.String("connId", client.id.String()),
		zap.Bool("wentOffline", wentOffline))

	if !wentOffline {
		return
	}

	for _, conversationID := range g.hub.PurgeTyping(client.userID) {
		g.broadcastTyping(EventTypingStop, conversationID, client.userID)
	}

	if err := g.presence.SetOffline(context.Background(), client.userID); err != nil {
		g.logger.Warn("failed to persist offline transition", zap.Error(err))
	}
	g.broadcastPresence(client.userID, false)
}

// dispatch routes one inbound event. Handler errors are returned only to
// the originating connection; they never propagate to other connections
// or crash the process.
func (g *Gateway) dispatch(client *Client, ev *Event) {
	ctx := context.Background()

	var err error
	switch ev.Type {
	case EventJoinConversation:
		err = g.handleJoinConversation(ctx, client, ev.Data)
	case EventLeaveConversation:
		err = g.handleLeaveConversation(client, ev.Data)
	case EventSendMessage:
		err = g.handleSendMessage(ctx, client, ev.Data)
	case EventMarkDelivered:
		err = g.handleMarkDelivered(ctx, client, ev.Data)
	case EventMarkRead:
		err = g.handleMarkRead(ctx, client, ev.Data)
	case EventToggleReaction:
		err = g.handleToggleReaction(ctx, client, ev.Data)
	case EventDeleteMessage:
		err = g.handleDeleteMessage(ctx, client, ev.Data)
	case EventTypingStart:
		err = g.handleTypingStart(ctx, client, ev.Data)
	case EventTypingStop:
		err = g.handleTypingStop(client, ev.Data)
	case EventStatusRequest:
		err = g.handleStatusRequest(client, ev.Data)
	case EventCallInitiate:
		err = g.handleCallInitiate(ctx, client, ev.Data)
	case EventCallReady:
		err = g.handleCallReady(ctx, client, ev.Data)
	case EventCallAccept:
		err = g.handleCallAccept(ctx, client, ev.Data)
	case EventCallReject:
		err = g.handleCallReject(ctx, client, ev.Data)
	case EventCallCancel:
		err = g.handleCallCancel(ctx, client, ev.Data)
	case EventCallBusy:
		err = g.handleCallBusy(ctx, client, ev.Data)
	case EventCallMissed:
		err = g.handleCallMissed(ctx, client, ev.Data)
	case EventCallEnd:
		err = g.handleCallEnd(ctx, client, ev.Data)
	case EventSignalOffer:
		err = g.handleSignal(ctx, client, EventSignalOffer, ev.Data)
	case EventSignalAnswer:
		err = g.handleSignal(ctx, client, EventSignalAnswer, ev.Data)
	case EventSignalIce:
		err = g.handleSignal(ctx, client, EventSignalIce, ev.Data)
	default:
		g.logger.Warn("unknown event type", zap.String("type", ev.Type))
		return
	}

	if err != nil {
		g.logger.Warn("event handler failed",
			zap.String("type", ev.Type),
			zap.String("userId", client.userID.String()),
			zap.Error(err))
		g.sendError(client, err)
	}
}

// handleStatusRequest answers a bulk presence query from the registry.
func (g *Gateway) handleStatusRequest(client *Client, data json.RawMessage) error {
	var req statusRequestData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	statuses := make([]userStatusData, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		statuses = append(statuses, userStatusData{
			UserID:   userID,
			IsOnline: g.hub.IsOnline(userID),
		})
	}

	g.sendEvent(client, EventStatusResponse, statusResponseData{Statuses: statuses})
	return nil
}

// broadcastPresence announces an online/offline transition to all
// connected parties. Not scoped to contacts; acceptable at small scale.
func (g *Gateway) broadcastPresence(userID uuid.UUID, isOnline bool) {
	data := presenceData{UserID: userID, IsOnline: isOnline}
	if !isOnline {
		data.LastSeen = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := marshalEvent(EventUserStatus, data)
	if err != nil {
		g.logger.Error("failed to marshal presence event", zap.Error(err))
		return
	}
	g.hub.BroadcastAll(payload)

	if err := database.PublishPresenceEvent(context.Background(), g.hub.redis, payload); err != nil {
		g.logger.Warn("failed to mirror presence event to redis", zap.Error(err))
	}
}

func (g *Gateway) sendEvent(client *Client, eventType string, data interface{}) {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		g.logger.Error("failed to marshal event",
			zap.String("type", eventType), zap.Error(err))
		return
	}
	client.enqueue(payload)
}

func (g *Gateway) sendError(client *Client, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		code = "UNAUTHORIZED"
	case errors.Is(err, domain.ErrAuthorization):
		code = "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		code = "NOT_FOUND"
	case errors.Is(err, domain.ErrValidation):
		code = "VALIDATION_ERROR"
	}

	g.sendEvent(client, EventError, errorData{Code: code, Message: err.Error()})
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return domain.ErrValidation
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrValidation
	}
	return nil
}
