package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member is a player's persisted seat in a room. The unique index on UserID
// backs the one-room-per-user invariant; RoomID is cleared when the seat is
// released rather than deleting the row.
type Member struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
	UserID    string         `gorm:"uniqueIndex;not null"`
	Name      string
	Ready     bool
	JoinedAt  time.Time
	RoomID    *uuid.UUID `gorm:"type:uuid;index"`
}
