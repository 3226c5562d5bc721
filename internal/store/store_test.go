package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "raja-mantri-server/internal/db"
	"raja-mantri-server/internal/entities"
	"raja-mantri-server/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return store.New(db)
}

func createRoom(t *testing.T, s *store.Store, code string) *entities.Room {
	t.Helper()
	r := &entities.Room{
		ID:       uuid.New(),
		Code:     code,
		Status:   entities.RoomWaiting,
		HostID:   "host",
		HostName: "Host",
	}
	require.NoError(t, s.CreateRoom(r))
	return r
}

func TestCreateAndFetchRoom(t *testing.T) {
	s := newTestStore(t)
	created := createRoom(t, s, "ABC123")

	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.Counter)
	assert.Equal(t, 0, got.Counter.Current)
	assert.Equal(t, entities.MaxPlayers, got.Counter.Max)

	_, err = s.RoomByCode("NOSUCH")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestAttachMemberMovesCounter(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")

	_, err := s.AttachMember(r.ID, "u1", "Asha")
	require.NoError(t, err)
	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Counter.Current)
	require.Len(t, got.Members, 1)

	// Idempotent for the same room.
	_, err = s.AttachMember(r.ID, "u1", "Asha")
	require.NoError(t, err)
	got, err = s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Counter.Current)
}

func TestAttachMemberCapacity(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		_, err := s.AttachMember(r.ID, u, u)
		require.NoError(t, err)
	}
	_, err := s.AttachMember(r.ID, "u5", "u5")
	assert.ErrorIs(t, err, store.ErrRoomFull)

	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Counter.Current)
	assert.Len(t, got.Members, 4)
}

func TestAttachMemberReassignsAcrossRooms(t *testing.T) {
	s := newTestStore(t)
	r1 := createRoom(t, s, "ROOM01")
	r2 := createRoom(t, s, "ROOM02")

	_, err := s.AttachMember(r1.ID, "u1", "Asha")
	require.NoError(t, err)
	_, err = s.AttachMember(r2.ID, "u1", "Asha")
	require.NoError(t, err)

	one, err := s.RoomByCode("ROOM01")
	require.NoError(t, err)
	assert.Equal(t, 0, one.Counter.Current)
	assert.Empty(t, one.Members, "a user holds at most one seat at a time")

	two, err := s.RoomByCode("ROOM02")
	require.NoError(t, err)
	assert.Equal(t, 1, two.Counter.Current)
	require.Len(t, two.Members, 1)
	assert.False(t, two.Members[0].Ready, "ready does not carry over between rooms")
}

func TestMembersOrderedByJoinTime(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")
	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := s.AttachMember(r.ID, u, u)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	require.Len(t, got.Members, 3)
	assert.Equal(t, "u1", got.Members[0].UserID)
	assert.Equal(t, "u3", got.Members[2].UserID)
}

func TestDetachMember(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")
	_, err := s.AttachMember(r.ID, "u1", "Asha")
	require.NoError(t, err)

	require.NoError(t, s.DetachMember("u1"))
	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Counter.Current)
	assert.Empty(t, got.Members)

	assert.ErrorIs(t, s.DetachMember("ghost"), store.ErrMemberNotFound)
}

func TestSetMemberReady(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")
	_, err := s.AttachMember(r.ID, "u1", "Asha")
	require.NoError(t, err)

	require.NoError(t, s.SetMemberReady(r.ID, "u1", true))
	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.True(t, got.Members[0].Ready)

	assert.ErrorIs(t, s.SetMemberReady(r.ID, "ghost", true), store.ErrMemberNotFound)
}

func TestSaveGameStateAndStatus(t *testing.T) {
	s := newTestStore(t)
	r := createRoom(t, s, "ABC123")

	blob := []byte(`{"phase":"role-assignment","round":1}`)
	require.NoError(t, s.SaveGameState(r.ID, entities.RoomInProgress, blob))

	got, err := s.RoomByCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomInProgress, got.Status)
	assert.JSONEq(t, string(blob), string(got.GameState))
}

func TestListRoomsExcludesInactive(t *testing.T) {
	s := newTestStore(t)
	createRoom(t, s, "LIVE01")
	dead := createRoom(t, s, "DEAD01")
	require.NoError(t, s.UpdateRoom(dead.ID, map[string]any{"status": entities.RoomInactive}))

	rooms, err := s.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "LIVE01", rooms[0].Code)
}

func TestSweepStale(t *testing.T) {
	s := newTestStore(t)
	createRoom(t, s, "WAIT01")
	running := createRoom(t, s, "PLAY01")
	require.NoError(t, s.UpdateRoom(running.ID, map[string]any{"status": entities.RoomInProgress}))

	n, err := s.SweepStale(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	waiting, err := s.RoomByCode("WAIT01")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomInactive, waiting.Status)
	played, err := s.RoomByCode("PLAY01")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomFinished, played.Status)
}
