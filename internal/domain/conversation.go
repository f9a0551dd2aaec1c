package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a two-party direct conversation. The WebSocket layer keys
// its broadcast rooms by ConversationID.
type Conversation struct {
	ConversationID uuid.UUID                 `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"conversationId"`
	CreatedAt      time.Time                 `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time                 `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt            `gorm:"index" json:"deletedAt,omitempty"`
	Participants   []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant carries the per-user unread counter the message
// store maintains. UnreadCount is incremented on message creation for the
// receiver and decremented when the receiver reads.
type ConversationParticipant struct {
	ParticipantID  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"participantId"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_conversation_user" json:"conversationId"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_conversation_user" json:"userId"`
	UnreadCount    int64      `gorm:"default:0" json:"unreadCount"`
	JoinedAt       time.Time  `gorm:"autoCreateTime" json:"joinedAt"`
	LastReadAt     *time.Time `json:"lastReadAt,omitempty"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
