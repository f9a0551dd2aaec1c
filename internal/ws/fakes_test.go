package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"realtime-service/internal/config"
	"realtime-service/internal/domain"
	"realtime-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// In-memory repository fakes backing real services, so scenario tests
// exercise the full dispatch -> service -> store path without a database.

type memConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*domain.Conversation
	unread        map[uuid.UUID]map[uuid.UUID]int64 // conversationID -> userID -> count
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{
		conversations: make(map[uuid.UUID]*domain.Conversation),
		unread:        make(map[uuid.UUID]map[uuid.UUID]int64),
	}
}

func (r *memConversationRepo) GetByID(conversationID uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *conv
	return &copied, nil
}

func (r *memConversationRepo) GetOrCreateDirect(userA, userB uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conv := range r.conversations {
		hasA, hasB := false, false
		for _, p := range conv.Participants {
			if p.UserID == userA {
				hasA = true
			}
			if p.UserID == userB {
				hasB = true
			}
		}
		if hasA && hasB {
			copied := *conv
			return &copied, nil
		}
	}

	conv := &domain.Conversation{ConversationID: uuid.New()}
	conv.Participants = []domain.ConversationParticipant{
		{ConversationID: conv.ConversationID, UserID: userA},
		{ConversationID: conv.ConversationID, UserID: userB},
	}
	r.conversations[conv.ConversationID] = conv
	r.unread[conv.ConversationID] = make(map[uuid.UUID]int64)
	copied := *conv
	return &copied, nil
}

func (r *memConversationRepo) GetParticipants(conversationID uuid.UUID) ([]domain.ConversationParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	return append([]domain.ConversationParticipant(nil), conv.Participants...), nil
}

func (r *memConversationRepo) IsParticipant(conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	for _, p := range conv.Participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memConversationRepo) IncrementUnread(conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if counts, ok := r.unread[conversationID]; ok {
		counts[userID]++
	}
	return nil
}

func (r *memConversationRepo) DecrementUnread(conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if counts, ok := r.unread[conversationID]; ok && counts[userID] > 0 {
		counts[userID]--
	}
	return nil
}

func (r *memConversationRepo) unreadCount(conversationID, userID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread[conversationID][userID]
}

// addConversation seeds a conversation with explicit participants.
func (r *memConversationRepo) addConversation(participants ...uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv := &domain.Conversation{ConversationID: uuid.New()}
	for _, userID := range participants {
		conv.Participants = append(conv.Participants, domain.ConversationParticipant{
			ConversationID: conv.ConversationID,
			UserID:         userID,
		})
	}
	r.conversations[conv.ConversationID] = conv
	r.unread[conv.ConversationID] = make(map[uuid.UUID]int64)
	return conv.ConversationID
}

type memMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*domain.Message
	reactions map[uuid.UUID][]domain.MessageReaction
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{
		messages:  make(map[uuid.UUID]*domain.Message),
		reactions: make(map[uuid.UUID][]domain.MessageReaction),
	}
}

func (r *memMessageRepo) Create(message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.New()
	}
	copied := *message
	r.messages[message.MessageID] = &copied
	return nil
}

func (r *memMessageRepo) GetByID(messageID uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[messageID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *message
	copied.Reactions = append([]domain.MessageReaction(nil), r.reactions[messageID]...)
	return &copied, nil
}

func (r *memMessageRepo) Update(message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *message
	r.messages[message.MessageID] = &copied
	return nil
}

func (r *memMessageRepo) Delete(messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, messageID)
	return nil
}

func (r *memMessageRepo) ToggleReaction(messageID, userID uuid.UUID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.reactions[messageID]
	for i, reaction := range existing {
		if reaction.UserID == userID && reaction.Emoji == emoji {
			r.reactions[messageID] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	r.reactions[messageID] = append(existing, domain.MessageReaction{
		ReactionID: uuid.New(),
		MessageID:  messageID,
		UserID:     userID,
		Emoji:      emoji,
	})
	return nil
}

func (r *memMessageRepo) GetReactions(messageID uuid.UUID) ([]domain.MessageReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.MessageReaction(nil), r.reactions[messageID]...), nil
}

type memCallRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*domain.Call
}

func newMemCallRepo() *memCallRepo {
	return &memCallRepo{calls: make(map[uuid.UUID]*domain.Call)}
}

func (r *memCallRepo) Create(call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if call.CallID == uuid.Nil {
		call.CallID = uuid.New()
	}
	copied := *call
	r.calls[call.CallID] = &copied
	return nil
}

func (r *memCallRepo) GetByID(callID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[callID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *call
	return &copied, nil
}

func (r *memCallRepo) Update(call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *call
	r.calls[call.CallID] = &copied
	return nil
}

func (r *memCallRepo) GetHistoryByUser(userID uuid.UUID, limit, offset int) ([]domain.Call, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var calls []domain.Call
	for _, call := range r.calls {
		if call.CallerID == userID || call.ReceiverID == userID {
			calls = append(calls, *call)
		}
	}
	return calls, int64(len(calls)), nil
}

type memPresenceRepo struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]*domain.UserPresence
}

func newMemPresenceRepo() *memPresenceRepo {
	return &memPresenceRepo{statuses: make(map[uuid.UUID]*domain.UserPresence)}
}

func (r *memPresenceRepo) SetStatus(userID uuid.UUID, status domain.PresenceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[userID] = &domain.UserPresence{UserID: userID, Status: status}
	return nil
}

func (r *memPresenceRepo) GetStatus(userID uuid.UUID) (*domain.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	presence, ok := r.statuses[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *presence
	return &copied, nil
}

func (r *memPresenceRepo) GetOnline() ([]domain.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var online []domain.UserPresence
	for _, p := range r.statuses {
		if p.Status == domain.PresenceOnline {
			online = append(online, *p)
		}
	}
	return online, nil
}

// testGateway bundles a gateway wired to real services over in-memory
// stores. Ring timers are disabled so tests stay deterministic.
type testGateway struct {
	gateway       *Gateway
	hub           *Hub
	conversations *memConversationRepo
	messages      *memMessageRepo
	calls         *memCallRepo
	presences     *memPresenceRepo
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	logger := zap.NewNop()
	conversations := newMemConversationRepo()
	messages := newMemMessageRepo()
	calls := newMemCallRepo()
	presences := newMemPresenceRepo()

	messageService := service.NewMessageService(messages, conversations, nil, logger)
	callService := service.NewCallService(calls, logger)
	presenceService := service.NewPresenceService(presences, nil, logger)

	hub := NewHub(logger, nil)
	gateway := NewGateway(logger, hub, nil, messageService, callService, presenceService, nil,
		config.WSConfig{TypingTTLSeconds: 10, RingTimeoutSeconds: 0})

	return &testGateway{
		gateway:       gateway,
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		calls:         calls,
		presences:     presences,
	}
}

// connectUser attaches a new connection for userID, running the full
// connect path, and drains the presence broadcast noise from every
// already-connected client so tests start from a quiet state.
func (tg *testGateway) connectUser(t *testing.T, userID uuid.UUID, peers ...*Client) *Client {
	t.Helper()
	c := newClient(tg.gateway, userID, nil)
	tg.gateway.connect(c)
	drainEvents(c)
	for _, peer := range peers {
		drainEvents(peer)
	}
	return c
}

func (tg *testGateway) dispatch(t *testing.T, c *Client, eventType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	tg.gateway.dispatch(c, &Event{Type: eventType, Data: raw})
}

// nextEvent pops the oldest queued event; fails if none is queued.
func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	default:
		t.Fatal("expected a queued event, got none")
		return Event{}
	}
}

func decodeData(t *testing.T, ev Event, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ev.Data, v))
}

func drainEvents(c *Client) []Event {
	var events []Event
	for {
		select {
		case payload := <-c.send:
			var ev Event
			if json.Unmarshal(payload, &ev) == nil {
				events = append(events, ev)
			}
		default:
			return events
		}
	}
}

func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("expected no event, got %s", payload)
	default:
	}
}
