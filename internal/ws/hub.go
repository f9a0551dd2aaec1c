package ws

import (
	"context"
	"sync"
	"time"

	"realtime-service/internal/database"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub owns the ephemeral cross-connection state: the per-user connection
// sets (the connection registry doubling as personal channels), the
// per-conversation rooms and the typing registry. It is instantiated once
// at process start and is safe for concurrent use.
//
// All maps are process-local. Horizontal scaling requires externalizing
// them to a shared store with atomic add/remove plus cross-instance
// pub/sub; BroadcastToRoom already mirrors room events onto the redis
// channel as that extension point.
type Hub struct {
	logger *zap.Logger
	redis  *redis.Client

	mu          sync.RWMutex
	connections map[uuid.UUID]map[*Client]struct{}            // userID -> connections
	rooms       map[uuid.UUID]map[*Client]struct{}            // conversationID -> connections
	typing      map[uuid.UUID]map[uuid.UUID]time.Time         // conversationID -> userID -> since
}

func NewHub(logger *zap.Logger, redisClient *redis.Client) *Hub {
	return &Hub{
		logger:      logger,
		redis:       redisClient,
		connections: make(map[uuid.UUID]map[*Client]struct{}),
		rooms:       make(map[uuid.UUID]map[*Client]struct{}),
		typing:      make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

// Register adds a connection and reports whether it is the user's first
// active one (the online transition).
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[c.userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.connections[c.userID] = conns
	}
	first := len(conns) == 0
	conns[c] = struct{}{}
	return first
}

// Unregister removes exactly this connection and its room subscriptions,
// and reports whether the user's connection set became empty. The set
// semantics make duplicate or re-ordered disconnects harmless: removing
// an already-removed connection cannot push a still-connected user
// offline.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[c.userID]
	if !ok {
		return false
	}
	if _, exists := conns[c]; !exists {
		return false
	}
	delete(conns, c)

	for conversationID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}

	if len(conns) == 0 {
		delete(h.connections, c.userID)
		return true
	}
	return false
}

func (h *Hub) JoinRoom(conversationID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[conversationID]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[conversationID] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) LeaveRoom(conversationID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, conversationID)
	}
}

func (h *Hub) InRoom(conversationID uuid.UUID, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[conversationID][c]
	return ok
}

// BroadcastToRoom delivers payload once to every connection in the room.
// exceptUser (uuid.Nil for none) drops every connection of that user,
// which is what typing broadcasts need. The payload is also mirrored to
// the shared redis channel for cross-instance consumers.
func (h *Hub) BroadcastToRoom(conversationID uuid.UUID, payload []byte, exceptUser uuid.UUID) {
	h.mu.RLock()
	for c := range h.rooms[conversationID] {
		if exceptUser != uuid.Nil && c.userID == exceptUser {
			continue
		}
		c.enqueue(payload)
	}
	h.mu.RUnlock()

	if err := database.PublishConversationEvent(context.Background(), h.redis, conversationID.String(), payload); err != nil {
		h.logger.Warn("failed to mirror room event to redis",
			zap.String("conversationId", conversationID.String()),
			zap.Error(err))
	}
}

// SendToUser delivers payload to every connection of the user (the
// personal channel) and returns how many connections received it. Zero
// means the user is offline and the payload was dropped.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.connections[userID] {
		c.enqueue(payload)
		delivered++
	}
	return delivered
}

// BroadcastAll delivers payload to every connected party.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for c := range conns {
			c.enqueue(payload)
		}
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SetTyping records the typing state, returning false if it was already set.
func (h *Hub) SetTyping(conversationID, userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.typing[conversationID]
	if users == nil {
		users = make(map[uuid.UUID]time.Time)
		h.typing[conversationID] = users
	}
	_, existed := users[userID]
	users[userID] = time.Now()
	return !existed
}

// ClearTyping removes the typing state, reporting whether it existed.
func (h *Hub) ClearTyping(conversationID, userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clearTypingLocked(conversationID, userID)
}

func (h *Hub) clearTypingLocked(conversationID, userID uuid.UUID) bool {
	users, ok := h.typing[conversationID]
	if !ok {
		return false
	}
	if _, exists := users[userID]; !exists {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(h.typing, conversationID)
	}
	return true
}

// PurgeTyping clears every typing entry the user holds and returns the
// affected conversations so the caller can emit stop-typing to each room.
func (h *Hub) PurgeTyping(userID uuid.UUID) []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	var affected []uuid.UUID
	for conversationID, users := range h.typing {
		if _, ok := users[userID]; ok {
			affected = append(affected, conversationID)
			delete(users, userID)
			if len(users) == 0 {
				delete(h.typing, conversationID)
			}
		}
	}
	return affected
}

// TypingEntry identifies one expired typing indicator.
type TypingEntry struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
}

// SweepTyping clears entries older than ttl and returns them. Covers
// clients that vanished without a stop-typing or a clean disconnect.
func (h *Hub) SweepTyping(ttl time.Duration) []TypingEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	var expired []TypingEntry
	for conversationID, users := range h.typing {
		for userID, since := range users {
			if since.Before(cutoff) {
				expired = append(expired, TypingEntry{ConversationID: conversationID, UserID: userID})
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(h.typing, conversationID)
		}
	}
	return expired
}
