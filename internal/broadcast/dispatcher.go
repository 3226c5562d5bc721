package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event names on the outbound wire.
const (
	EventRoomState       = "room-state"
	EventGameStateUpdate = "game-state-update"
	EventPlayerJoined    = "player-joined"
	EventPlayerLeft      = "player-left"
	EventPlayerReady     = "player-ready-update"
	EventHostChanged     = "host-changed"
	EventGameStarted     = "game-started"
	EventRoleAssigned    = "role-assigned"
	EventSipahiGuessed   = "sipahi-guessed"
	EventRoundEnded      = "round-ended"
	EventChatMessage     = "chat-message"
	EventError           = "error"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const outboxSize = 64

// Client is one registered connection. Events are queued on Out and drained
// by the transport's write pump; a full outbox drops the event rather than
// blocking the coordinator.
type Client struct {
	ID     string
	UserID string
	Out    chan Event

	closeOnce sync.Once
}

func (c *Client) send(e Event) bool {
	select {
	case c.Out <- e:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Out) })
}

// Dispatcher fans events out to three scopes: a single user (role secrecy),
// one room's subscribers, and every registered connection (lobby feed).
type Dispatcher struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	byUser   map[string]map[*Client]struct{}
	roomSubs map[string]map[*Client]struct{}
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		clients:  make(map[string]*Client),
		byUser:   make(map[string]map[*Client]struct{}),
		roomSubs: make(map[string]map[*Client]struct{}),
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Register adds a connection for userID and returns its client handle.
func (d *Dispatcher) Register(userID string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Out:    make(chan Event, outboxSize),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[c.ID] = c
	if d.byUser[userID] == nil {
		d.byUser[userID] = make(map[*Client]struct{})
	}
	d.byUser[userID][c] = struct{}{}
	return c
}

// Unregister removes the connection from every scope and closes its outbox.
func (d *Dispatcher) Unregister(c *Client) {
	d.mu.Lock()
	delete(d.clients, c.ID)
	if set := d.byUser[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(d.byUser, c.UserID)
		}
	}
	for code, subs := range d.roomSubs {
		delete(subs, c)
		if len(subs) == 0 {
			delete(d.roomSubs, code)
		}
	}
	d.mu.Unlock()
	c.close()
}

// Subscribe adds the connection to a room scope.
func (d *Dispatcher) Subscribe(c *Client, roomCode string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.roomSubs[roomCode] == nil {
		d.roomSubs[roomCode] = make(map[*Client]struct{})
	}
	d.roomSubs[roomCode][c] = struct{}{}
}

// Unsubscribe removes the connection from a room scope.
func (d *Dispatcher) Unsubscribe(c *Client, roomCode string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if subs := d.roomSubs[roomCode]; subs != nil {
		delete(subs, c)
		if len(subs) == 0 {
			delete(d.roomSubs, roomCode)
		}
	}
}

// ToRoom delivers an event to every connection subscribed to roomCode.
func (d *Dispatcher) ToRoom(roomCode, event string, payload any) {
	e := Event{Type: event, Payload: payload}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := range d.roomSubs[roomCode] {
		if !c.send(e) {
			d.log.Warn().Str("room", roomCode).Str("user", c.UserID).Msg("outbox full, event dropped")
		}
	}
}

// ToAll delivers an event to every registered connection.
func (d *Dispatcher) ToAll(event string, payload any) {
	e := Event{Type: event, Payload: payload}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.clients {
		if !c.send(e) {
			d.log.Warn().Str("user", c.UserID).Msg("outbox full, event dropped")
		}
	}
}

// ToUser delivers an event only to connections authenticated as userID. This
// is a true unicast: room subscribers never see it, so a role assignment
// cannot leak to a modified client.
func (d *Dispatcher) ToUser(userID, event string, payload any) {
	e := Event{Type: event, Payload: payload}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := range d.byUser[userID] {
		if !c.send(e) {
			d.log.Warn().Str("user", userID).Msg("outbox full, unicast dropped")
		}
	}
}
