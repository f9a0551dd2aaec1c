package ws

import (
	"context"
	"encoding/json"
	"time"

	"realtime-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleTypingStart records the typing state and notifies the rest of the
// room. The sender's own connections are excluded: a user never sees their
// own indicator.
func (g *Gateway) handleTypingStart(ctx context.Context, client *Client, data json.RawMessage) error {
	var req typingData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	ok, err := g.messages.IsParticipant(ctx, req.ConversationID, client.userID)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrNotParticipant
	}

	g.hub.SetTyping(req.ConversationID, client.userID)
	g.broadcastTyping(EventTypingStart, req.ConversationID, client.userID)
	return nil
}

// handleTypingStop clears the state. A stop without a matching start is a
// harmless no-op with no broadcast.
func (g *Gateway) handleTypingStop(client *Client, data json.RawMessage) error {
	var req typingData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	if g.hub.ClearTyping(req.ConversationID, client.userID) {
		g.broadcastTyping(EventTypingStop, req.ConversationID, client.userID)
	}
	return nil
}

func (g *Gateway) broadcastTyping(eventType string, conversationID, userID uuid.UUID) {
	payload, err := marshalEvent(eventType, typingData{ConversationID: conversationID, UserID: userID})
	if err != nil {
		g.logger.Error("failed to marshal typing event", zap.Error(err))
		return
	}
	g.hub.BroadcastToRoom(conversationID, payload, userID)
}

// sweepTyping expires indicators whose owner stopped sending without a
// typing-stop, emitting the stop the client never did.
func (g *Gateway) sweepTyping(ttl time.Duration) {
	for _, entry := range g.hub.SweepTyping(ttl) {
		g.logger.Debug("typing indicator expired",
			zap.String("conversationId", entry.ConversationID.String()),
			zap.String("userId", entry.UserID.String()))
		g.broadcastTyping(EventTypingStop, entry.ConversationID, entry.UserID)
	}
}
