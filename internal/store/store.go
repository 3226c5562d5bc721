package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"raja-mantri-server/internal/entities"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrRoomFull       = errors.New("room full")
)

// Store is the only component that talks to the persistence engine. Every
// write that touches both a room's member list and its counter record runs
// inside a single transaction so readers never observe one without the other.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RoomByCode fetches a room with its member list (join order) and counter.
func (s *Store) RoomByCode(code string) (*entities.Room, error) {
	var room entities.Room
	tx := s.db.
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Counter").
		Where("code = ?", code).
		First(&room)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if tx.Error != nil {
		return nil, fmt.Errorf("fetch room %s: %w", code, tx.Error)
	}
	return &room, nil
}

// ListRooms returns all rooms a lobby browser should see, inactive excluded.
func (s *Store) ListRooms() ([]entities.Room, error) {
	var rooms []entities.Room
	tx := s.db.
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Counter").
		Where("status <> ?", entities.RoomInactive).
		Order("created_at DESC").
		Find(&rooms)
	return rooms, tx.Error
}

// CreateRoom persists a new room together with its counter record.
func (s *Store) CreateRoom(room *entities.Room) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if room.ID == uuid.Nil {
			room.ID = uuid.New()
		}
		if err := tx.Create(room).Error; err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		counter := entities.RoomCounter{
			ID:     uuid.New(),
			RoomID: room.ID,
			Max:    entities.MaxPlayers,
		}
		if err := tx.Create(&counter).Error; err != nil {
			return fmt.Errorf("create room counter: %w", err)
		}
		room.Counter = &counter
		return nil
	})
}

// UpdateRoom applies a set of room fields in one statement.
func (s *Store) UpdateRoom(roomID uuid.UUID, fields map[string]any) error {
	tx := s.db.Model(&entities.Room{}).Where("id = ?", roomID).Updates(fields)
	if tx.Error != nil {
		return fmt.Errorf("update room: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AttachMember seats userID in the given room. It is a guarded
// check-and-insert, not an upsert: capacity and the one-room-per-user
// invariant are re-checked inside the transaction, and the counter of the
// room gained (and of any room lost) moves in the same transaction.
func (s *Store) AttachMember(roomID uuid.UUID, userID, name string) (*entities.Member, error) {
	var member entities.Member
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing entities.Member
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		switch {
		case err == nil && existing.RoomID != nil && *existing.RoomID == roomID:
			member = existing
			return nil

		case err == nil:
			// Seat reassignment: release the old room first.
			if existing.RoomID != nil {
				if derr := decrementCounter(tx, *existing.RoomID); derr != nil {
					return derr
				}
			}
			if cerr := claimSeat(tx, roomID); cerr != nil {
				return cerr
			}
			existing.RoomID = &roomID
			existing.Name = name
			existing.Ready = false
			existing.JoinedAt = time.Now()
			if uerr := tx.Save(&existing).Error; uerr != nil {
				return fmt.Errorf("reassign member: %w", uerr)
			}
			member = existing
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if cerr := claimSeat(tx, roomID); cerr != nil {
				return cerr
			}
			member = entities.Member{
				ID:       uuid.New(),
				UserID:   userID,
				Name:     name,
				JoinedAt: time.Now(),
				RoomID:   &roomID,
			}
			if cerr := tx.Create(&member).Error; cerr != nil {
				return fmt.Errorf("insert member: %w", cerr)
			}
			return nil

		default:
			return fmt.Errorf("lookup member: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// claimSeat increments the counter only while a seat remains.
func claimSeat(tx *gorm.DB, roomID uuid.UUID) error {
	res := tx.Model(&entities.RoomCounter{}).
		Where("room_id = ? AND current < max", roomID).
		Update("current", gorm.Expr("current + 1"))
	if res.Error != nil {
		return fmt.Errorf("claim seat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRoomFull
	}
	return nil
}

func decrementCounter(tx *gorm.DB, roomID uuid.UUID) error {
	res := tx.Model(&entities.RoomCounter{}).
		Where("room_id = ? AND current > 0", roomID).
		Update("current", gorm.Expr("current - 1"))
	if res.Error != nil {
		return fmt.Errorf("release seat: %w", res.Error)
	}
	return nil
}

// DetachMember releases the user's seat, keeping the member row around.
func (s *Store) DetachMember(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var member entities.Member
		err := tx.Where("user_id = ?", userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup member: %w", err)
		}
		if member.RoomID == nil {
			return nil
		}
		if derr := decrementCounter(tx, *member.RoomID); derr != nil {
			return derr
		}
		return tx.Model(&member).Updates(map[string]any{"room_id": nil, "ready": false}).Error
	})
}

// SetMemberReady persists a single member's ready flag.
func (s *Store) SetMemberReady(roomID uuid.UUID, userID string, ready bool) error {
	tx := s.db.Model(&entities.Member{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("ready", ready)
	if tx.Error != nil {
		return fmt.Errorf("update ready flag: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SaveGameState writes the opaque game blob and the room status together.
func (s *Store) SaveGameState(roomID uuid.UUID, status entities.RoomStatus, blob []byte) error {
	return s.UpdateRoom(roomID, map[string]any{"game_state": blob, "status": status})
}

// SweepStale finalizes rooms untouched since cutoff: empty waiting rooms go
// inactive, abandoned in-progress rooms are marked finished. Returns the
// number of rooms changed.
func (s *Store) SweepStale(cutoff time.Time) (int64, error) {
	var total int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Room{}).
			Where("status = ? AND updated_at < ?", entities.RoomWaiting, cutoff).
			Update("status", entities.RoomInactive)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Model(&entities.Room{}).
			Where("status = ? AND updated_at < ?", entities.RoomInProgress, cutoff).
			Update("status", entities.RoomFinished)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}
