package ws

import (
	"context"
	"encoding/json"

	"realtime-service/internal/domain"
	"realtime-service/internal/middleware"
	"realtime-service/internal/service"

	"github.com/google/uuid"
)

// handleJoinConversation subscribes the connection to a conversation room
// after verifying membership, then acknowledges.
func (g *Gateway) handleJoinConversation(ctx context.Context, client *Client, data json.RawMessage) error {
	var req conversationData
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

	g.hub.JoinRoom(req.ConversationID, client)
	g.sendEvent(client, EventJoinedConversation, conversationData{ConversationID: req.ConversationID})
	return nil
}

func (g *Gateway) handleLeaveConversation(client *Client, data json.RawMessage) error {
	var req conversationData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	g.hub.LeaveRoom(req.ConversationID, client)
	return nil
}

// handleSendMessage persists the message, acknowledges the sending
// connection, fans out to the conversation room and pushes to the
// receiver's personal channel so a receiver who has not joined the room
// still learns of the message.
func (g *Gateway) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var input domain.SendMessageInput
	if err := unmarshalData(data, &input); err != nil {
		return err
	}

	message, conversation, err := g.messages.CreateMessage(ctx, client.userID, &input)
	if err != nil {
		return err
	}
	middleware.RecordMessageRelayed()

	g.sendEvent(client, EventMessageSent, message)

	payload, err := marshalEvent(EventMessageReceived, message)
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(message.ConversationID, payload, uuid.Nil)

	// Personal-channel push carries the conversation so the receiver's
	// client can render a thread it has never loaded.
	personal, err := marshalEvent(EventMessageNew, newMessageData{Message: message, Conversation: conversation})
	if err != nil {
		return err
	}
	g.hub.SendToUser(message.ReceiverID, personal)
	return nil
}

func (g *Gateway) handleMarkDelivered(ctx context.Context, client *Client, data json.RawMessage) error {
	var req messageIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	message, err := g.messages.MarkDelivered(ctx, req.MessageID, client.userID)
	if err != nil {
		return err
	}
	return g.notifyMessageStatus(message)
}

func (g *Gateway) handleMarkRead(ctx context.Context, client *Client, data json.RawMessage) error {
	var req messageIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	message, err := g.messages.MarkRead(ctx, req.MessageID, client.userID)
	if err != nil {
		return err
	}
	return g.notifyMessageStatus(message)
}

// notifyMessageStatus tells the original sender's personal channel about a
// delivery-state change so read receipts work without a joined room.
func (g *Gateway) notifyMessageStatus(message *domain.Message) error {
	payload, err := marshalEvent(EventMessageStatus, messageStatusData{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
		Status:         message.Status,
	})
	if err != nil {
		return err
	}
	g.hub.SendToUser(message.SenderID, payload)
	return nil
}

func (g *Gateway) handleToggleReaction(ctx context.Context, client *Client, data json.RawMessage) error {
	var req toggleReactionData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	message, err := g.messages.ToggleReaction(ctx, req.MessageID, client.userID, req.Emoji)
	if err != nil {
		return err
	}

	payload, err := marshalEvent(EventMessageReaction, messageReactionData{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
		Reactions:      message.Reactions,
	})
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(message.ConversationID, payload, uuid.Nil)
	return nil
}

func (g *Gateway) handleDeleteMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var req messageIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	message, err := g.messages.DeleteMessage(ctx, req.MessageID, client.userID)
	if err != nil {
		return err
	}

	payload, err := marshalEvent(EventMessageDeleted, messageDeletedData{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
	})
	if err != nil {
		return err
	}
	g.hub.BroadcastToRoom(message.ConversationID, payload, uuid.Nil)
	return nil
}
