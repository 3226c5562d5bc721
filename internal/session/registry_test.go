package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIsIdempotent(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	first, err := r.Resolve("u1", "Asha")
	require.NoError(t, err)
	again, err := r.Resolve("u1", "Asha")
	require.NoError(t, err)
	assert.Equal(t, first.ConnectedAt, again.ConnectedAt)
	assert.Equal(t, "Asha", again.Name)
}

func TestRoomMembershipSet(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	_, err = r.Resolve("u1", "Asha")
	require.NoError(t, err)

	require.NoError(t, r.JoinedRoom("u1", "ROOM01"))
	require.NoError(t, r.JoinedRoom("u1", "ROOM02"))
	s := r.Get("u1")
	require.NotNil(t, s)
	assert.Len(t, s.Rooms, 2)

	require.NoError(t, r.LeftRoom("u1", "ROOM01"))
	s = r.Get("u1")
	assert.Len(t, s.Rooms, 1)
	_, ok := s.Rooms["ROOM02"]
	assert.True(t, ok)
}

func TestDisconnectIsStampedNotDeleted(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	_, err = r.Resolve("u1", "Asha")
	require.NoError(t, err)

	require.NoError(t, r.RecordDisconnect("u1"))
	s := r.Get("u1")
	require.NotNil(t, s, "disconnect keeps the session for reconnection")
	assert.False(t, s.DisconnectedAt.IsZero())

	// A reconnect clears the stamp via JoinedRoom.
	require.NoError(t, r.JoinedRoom("u1", "ROOM01"))
	s = r.Get("u1")
	assert.True(t, s.DisconnectedAt.IsZero())
}

func TestSweepPurgesOnlyStaleSessions(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	_, err = r.Resolve("stale", "Old")
	require.NoError(t, err)
	_, err = r.Resolve("live", "New")
	require.NoError(t, err)
	require.NoError(t, r.RecordDisconnect("stale"))

	n, err := r.Sweep(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, r.Get("stale"))
	assert.NotNil(t, r.Get("live"), "connected sessions are never swept")
}

func TestMutateUnknownUserIsNoOp(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.NoError(t, r.RecordDisconnect("ghost"))
	assert.NoError(t, r.LeftRoom("ghost", "ROOM01"))
}
