package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// UserPresence mirrors the live registry state for REST-surfaced reads.
// The authoritative online flag is the connection registry; this row is
// written on online/offline transitions only.
type UserPresence struct {
	UserID   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"userId"`
	Status   PresenceStatus `gorm:"type:varchar(20);default:'OFFLINE';index" json:"status"`
	LastSeen time.Time      `gorm:"autoCreateTime" json:"lastSeen"`
}

func (UserPresence) TableName() string {
	return "user_presence"
}
