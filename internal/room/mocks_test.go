package room_test

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"raja-mantri-server/internal/entities"
	"raja-mantri-server/internal/game"
	"raja-mantri-server/internal/store"
)

// fakeStore is an in-memory stand-in for the gorm adapter with the same
// transactional semantics: counter and membership always move together.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	rooms   map[uuid.UUID]entities.Room
	byCode  map[string]uuid.UUID
	members map[string]entities.Member
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:   make(map[uuid.UUID]entities.Room),
		byCode:  make(map[string]uuid.UUID),
		members: make(map[string]entities.Member),
	}
}

func (f *fakeStore) nextJoinTime() time.Time {
	f.seq++
	return time.Unix(int64(f.seq), 0)
}

func (f *fakeStore) membersOf(roomID uuid.UUID) []entities.Member {
	var out []entities.Member
	for _, m := range f.members {
		if m.RoomID != nil && *m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (f *fakeStore) roomCopy(id uuid.UUID) *entities.Room {
	r := f.rooms[id]
	r.Members = f.membersOf(id)
	r.Counter = &entities.RoomCounter{RoomID: id, Current: len(r.Members), Max: entities.MaxPlayers}
	return &r
}

func (f *fakeStore) RoomByCode(code string) (*entities.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byCode[code]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	return f.roomCopy(id), nil
}

func (f *fakeStore) ListRooms() ([]entities.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Room
	for id, r := range f.rooms {
		if r.Status == entities.RoomInactive {
			continue
		}
		out = append(out, *f.roomCopy(id))
	}
	return out, nil
}

func (f *fakeStore) CreateRoom(room *entities.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	f.rooms[room.ID] = *room
	f.byCode[room.Code] = room.ID
	return nil
}

func (f *fakeStore) UpdateRoom(roomID uuid.UUID, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return store.ErrRoomNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			r.Status = v.(entities.RoomStatus)
		case "host_id":
			r.HostID = v.(string)
		case "host_name":
			r.HostName = v.(string)
		case "game_state":
			r.GameState = datatypes.JSON(v.([]byte))
		}
	}
	r.UpdatedAt = time.Now()
	f.rooms[roomID] = r
	return nil
}

func (f *fakeStore) AttachMember(roomID uuid.UUID, userID, name string) (*entities.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.members[userID]; ok {
		if m.RoomID != nil && *m.RoomID == roomID {
			return &m, nil
		}
		if len(f.membersOf(roomID)) >= entities.MaxPlayers {
			return nil, store.ErrRoomFull
		}
		m.RoomID = &roomID
		m.Name = name
		m.Ready = false
		m.JoinedAt = f.nextJoinTime()
		f.members[userID] = m
		return &m, nil
	}

	if len(f.membersOf(roomID)) >= entities.MaxPlayers {
		return nil, store.ErrRoomFull
	}
	m := entities.Member{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		JoinedAt: f.nextJoinTime(),
		RoomID:   &roomID,
	}
	f.members[userID] = m
	return &m, nil
}

func (f *fakeStore) DetachMember(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return store.ErrMemberNotFound
	}
	m.RoomID = nil
	m.Ready = false
	f.members[userID] = m
	return nil
}

func (f *fakeStore) SetMemberReady(roomID uuid.UUID, userID string, ready bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok || m.RoomID == nil || *m.RoomID != roomID {
		return store.ErrMemberNotFound
	}
	m.Ready = ready
	f.members[userID] = m
	return nil
}

func (f *fakeStore) SaveGameState(roomID uuid.UUID, status entities.RoomStatus, blob []byte) error {
	return f.UpdateRoom(roomID, map[string]any{"status": status, "game_state": blob})
}

func (f *fakeStore) SweepStale(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rooms {
		if r.UpdatedAt.After(cutoff) {
			continue
		}
		switch r.Status {
		case entities.RoomWaiting:
			r.Status = entities.RoomInactive
		case entities.RoomInProgress:
			r.Status = entities.RoomFinished
		default:
			continue
		}
		f.rooms[id] = r
		n++
	}
	return n, nil
}

func (f *fakeStore) seated(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	return ok && m.RoomID != nil
}

func (f *fakeStore) statusOf(code string) entities.RoomStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[f.byCode[code]].Status
}

// recorder captures every dispatched event per scope.
type recorded struct {
	scope   string // "room" | "all" | "user"
	target  string
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) ToRoom(code, event string, payload any) {
	r.add(recorded{scope: "room", target: code, event: event, payload: payload})
}

func (r *recorder) ToAll(event string, payload any) {
	r.add(recorded{scope: "all", event: event, payload: payload})
}

func (r *recorder) ToUser(userID, event string, payload any) {
	r.add(recorded{scope: "user", target: userID, event: event, payload: payload})
}

func (r *recorder) add(e recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) byEvent(event string) []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorded
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// rolesDealt rebuilds the latest role each user was privately told.
func (r *recorder) rolesDealt() map[string]game.Role {
	roles := make(map[string]game.Role)
	for _, e := range r.byEvent("role-assigned") {
		payload := e.payload.(map[string]any)
		roles[e.target] = payload["role"].(game.Role)
	}
	return roles
}
