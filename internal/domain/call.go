package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallType string

const (
	CallTypeVoice CallType = "voice"
	CallTypeVideo CallType = "video"
)

type CallStatus string

const (
	CallStatusInitiated CallStatus = "INITIATED"
	CallStatusRinging   CallStatus = "RINGING"
	CallStatusAccepted  CallStatus = "ACCEPTED"
	CallStatusEnded     CallStatus = "ENDED"
	CallStatusRejected  CallStatus = "REJECTED"
	CallStatusMissed    CallStatus = "MISSED"
	CallStatusCancelled CallStatus = "CANCELLED"
	CallStatusBusy      CallStatus = "BUSY"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusEnded, CallStatusRejected, CallStatusMissed, CallStatusCancelled, CallStatusBusy:
		return true
	}
	return false
}

// Call is the canonical call record kept in the call store. DurationSeconds
// is set iff both StartedAt and EndedAt are set, equals their difference in
// whole seconds and is never negative.
type Call struct {
	CallID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"callId"`
	ConversationID  *uuid.UUID `gorm:"type:uuid;index" json:"conversationId,omitempty"`
	CallerID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"callerId"`
	ReceiverID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"receiverId"`
	CallType        CallType   `gorm:"type:varchar(10);not null" json:"callType"`
	Status          CallStatus `gorm:"type:varchar(20);not null" json:"status"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int64     `json:"duration,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Call) TableName() string {
	return "calls"
}

// IsParticipant reports whether userID is the caller or receiver.
func (c *Call) IsParticipant(userID uuid.UUID) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// Counterpart returns the other party of the call.
func (c *Call) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}
