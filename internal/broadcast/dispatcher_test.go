package broadcast

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case e := <-c.Out:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestRoomScopeOnlyReachesSubscribers(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	inRoom := d.Register("u1")
	outside := d.Register("u2")
	d.Subscribe(inRoom, "ROOM01")

	d.ToRoom("ROOM01", EventChatMessage, "hi")

	require.Len(t, drain(inRoom), 1)
	assert.Empty(t, drain(outside))
}

func TestGlobalScopeReachesEveryone(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	a := d.Register("u1")
	b := d.Register("u2")

	d.ToAll(EventGameStateUpdate, "snapshot")

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestUnicastNeverLeaksToRoom(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	target := d.Register("u1")
	peer := d.Register("u2")
	d.Subscribe(target, "ROOM01")
	d.Subscribe(peer, "ROOM01")

	d.ToUser("u1", EventRoleAssigned, map[string]string{"role": "chor"})

	events := drain(target)
	require.Len(t, events, 1)
	assert.Equal(t, EventRoleAssigned, events[0].Type)
	assert.Empty(t, drain(peer), "a role assignment must stay private to its recipient")
}

func TestUnregisterClosesOutboxAndDropsScopes(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	c := d.Register("u1")
	d.Subscribe(c, "ROOM01")

	d.Unregister(c)
	_, open := <-c.Out
	assert.False(t, open)

	// No panic and no delivery after removal.
	d.ToRoom("ROOM01", EventChatMessage, "hi")
	d.ToUser("u1", EventRoleAssigned, nil)
	d.ToAll(EventGameStateUpdate, nil)
}

func TestFullOutboxDropsInsteadOfBlocking(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	c := d.Register("u1")

	for i := 0; i < outboxSize*2; i++ {
		d.ToUser("u1", EventChatMessage, i)
	}
	assert.Len(t, drain(c), outboxSize)
}
