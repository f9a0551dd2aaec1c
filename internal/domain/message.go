package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
)

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
)

// Attachment is stored inline as JSON on the message row.
type Attachment struct {
	URL      string `json:"url"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type Message struct {
	MessageID      uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"messageId"`
	ConversationID uuid.UUID         `gorm:"type:uuid;not null;index:idx_message_conversation_created" json:"conversationId"`
	SenderID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"senderId"`
	ReceiverID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"receiverId"`
	MessageType    MessageType       `gorm:"type:varchar(20);default:'TEXT'" json:"messageType"`
	Text           string            `gorm:"type:text" json:"text,omitempty"`
	Attachments    []Attachment      `gorm:"serializer:json" json:"attachments,omitempty"`
	ReplyToID      *uuid.UUID        `gorm:"type:uuid" json:"replyTo,omitempty"`
	Status         MessageStatus     `gorm:"type:varchar(20);default:'SENT'" json:"status"`
	DeliveredAt    *time.Time        `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time        `json:"readAt,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index:idx_message_conversation_created" json:"createdAt"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"deletedAt,omitempty"`
	Reactions      []MessageReaction `gorm:"foreignKey:MessageID" json:"reactions"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageReaction is a first-class row; one per (message, user, emoji).
// Toggling removes an existing row or inserts a new one.
type MessageReaction struct {
	ReactionID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reactionId"`
	MessageID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user_emoji" json:"messageId"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user_emoji" json:"userId"`
	Emoji      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_reaction_message_user_emoji" json:"emoji"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

// SendMessageInput is the payload of a send-message event.
type SendMessageInput struct {
	ReceiverID  uuid.UUID    `json:"receiverId"`
	MessageType MessageType  `json:"messageType,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     *uuid.UUID   `json:"replyTo,omitempty"`
}
