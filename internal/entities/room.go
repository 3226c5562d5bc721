package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in-progress"
	RoomFinished   RoomStatus = "finished"
	RoomInactive   RoomStatus = "inactive"
)

// MaxPlayers is fixed: the role game needs exactly four seats.
const MaxPlayers = 4

type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
	Code      string         `gorm:"uniqueIndex;not null"`
	Title     string
	Image     string
	Private   bool
	Status    RoomStatus `gorm:"index;default:'waiting'"`
	HostID    string     `gorm:"index"`
	HostName  string
	GameState datatypes.JSON
	Members   []Member     `gorm:"foreignKey:RoomID"`
	Counter   *RoomCounter `gorm:"foreignKey:RoomID"`
}

// RoomCounter is the zero-or-one membership counter record a room owns.
type RoomCounter struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;"`
	RoomID  uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Current int
	Max     int
}
