package ws

import (
	"encoding/json"

	"realtime-service/internal/domain"

	"github.com/google/uuid"
)

// Event is the wire frame for both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server event types.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventSendMessage       = "send-message"
	EventMarkDelivered     = "mark-delivered"
	EventMarkRead          = "mark-read"
	EventToggleReaction    = "toggle-reaction"
	EventDeleteMessage     = "delete-message"
	EventTypingStart       = "typing-start"
	EventTypingStop        = "typing-stop"
	EventStatusRequest     = "status-request"
	EventCallInitiate      = "call-initiate"
	EventCallReady         = "call-ready"
	EventCallAccept        = "call-accept"
	EventCallReject        = "call-reject"
	EventCallCancel        = "call-cancel"
	EventCallBusy          = "call-busy"
	EventCallMissed        = "call-missed"
	EventCallEnd           = "call-end"
	EventSignalOffer       = "signal-offer"
	EventSignalAnswer      = "signal-answer"
	EventSignalIce         = "signal-ice"
)

// Server -> client event types. typing-start/typing-stop and call-missed
// are reused verbatim as broadcasts.
const (
	EventJoinedConversation = "joined-conversation"
	EventMessageSent        = "message-sent"
	EventMessageReceived    = "message-received"
	EventMessageNew         = "message-new"
	EventMessageStatus      = "message-status"
	EventMessageReaction    = "message-reaction"
	EventMessageDeleted     = "message-deleted"
	EventUserStatus         = "user-status"
	EventStatusResponse     = "status-response"
	EventCallIncoming       = "call-incoming"
	EventCallInitiated      = "call-initiated"
	EventCallRinging        = "call-ringing"
	EventCallAccepted       = "call-accepted"
	EventCallAcceptedAck    = "call-accepted-ack"
	EventCallRejected       = "call-rejected"
	EventCallCancelled      = "call-cancelled"
	EventCallBusyNotice     = "call-busy"
	EventCallEnded          = "call-ended"
	EventCallEndAck         = "call-end-ack"
	EventError              = "error"
)

type conversationData struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

type messageIDData struct {
	MessageID uuid.UUID `json:"messageId"`
}

type toggleReactionData struct {
	MessageID uuid.UUID `json:"messageId"`
	Emoji     string    `json:"emoji"`
}

type typingData struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId,omitempty"`
}

type statusRequestData struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

type userStatusData struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
}

type statusResponseData struct {
	Statuses []userStatusData `json:"statuses"`
}

type presenceData struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen string    `json:"lastSeen,omitempty"`
}

type messageStatusData struct {
	MessageID      uuid.UUID            `json:"messageId"`
	ConversationID uuid.UUID            `json:"conversationId"`
	Status         domain.MessageStatus `json:"status"`
}

type messageReactionData struct {
	MessageID      uuid.UUID                `json:"messageId"`
	ConversationID uuid.UUID                `json:"conversationId"`
	Reactions      []domain.MessageReaction `json:"reactions"`
}

type messageDeletedData struct {
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
}

type newMessageData struct {
	Message      *domain.Message      `json:"message"`
	Conversation *domain.Conversation `json:"conversation"`
}

type callInitiateData struct {
	ReceiverID     uuid.UUID       `json:"receiverId"`
	Type           domain.CallType `json:"type"`
	ConversationID *uuid.UUID      `json:"conversationId,omitempty"`
	Offer          json.RawMessage `json:"offer,omitempty"`
}

type callIDData struct {
	CallID uuid.UUID `json:"callId"`
}

type callAcceptData struct {
	CallID uuid.UUID       `json:"callId"`
	Answer json.RawMessage `json:"answer,omitempty"`
}

type callIncomingData struct {
	Call  *domain.Call    `json:"call"`
	Offer json.RawMessage `json:"offer,omitempty"`
}

type callAcceptedData struct {
	Call   *domain.Call    `json:"call"`
	Answer json.RawMessage `json:"answer,omitempty"`
}

type signalData struct {
	CallID       uuid.UUID       `json:"callId"`
	TargetUserID uuid.UUID       `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload"`
}

type signalRelayData struct {
	CallID   uuid.UUID       `json:"callId"`
	SenderID uuid.UUID       `json:"senderId"`
	Payload  json.RawMessage `json:"payload"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// marshalEvent builds a wire frame. Marshal failures are programmer errors
// on our own payload types, so they surface as an empty frame plus a log
// at the call site rather than a client-visible error.
func marshalEvent(eventType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Data: raw})
}
