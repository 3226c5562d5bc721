package room

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmcvetta/randutil"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/iter"

	"raja-mantri-server/internal/broadcast"
	"raja-mantri-server/internal/entities"
	"raja-mantri-server/internal/game"
	"raja-mantri-server/internal/session"
	"raja-mantri-server/internal/store"
)

// Store is the persistence surface the coordinator consumes.
type Store interface {
	RoomByCode(code string) (*entities.Room, error)
	ListRooms() ([]entities.Room, error)
	CreateRoom(room *entities.Room) error
	UpdateRoom(roomID uuid.UUID, fields map[string]any) error
	AttachMember(roomID uuid.UUID, userID, name string) (*entities.Member, error)
	DetachMember(userID string) error
	SetMemberReady(roomID uuid.UUID, userID string, ready bool) error
	SaveGameState(roomID uuid.UUID, status entities.RoomStatus, blob []byte) error
	SweepStale(cutoff time.Time) (int64, error)
}

// Dispatcher is the fan-out surface the coordinator emits through.
type Dispatcher interface {
	ToRoom(roomCode, event string, payload any)
	ToAll(event string, payload any)
	ToUser(userID, event string, payload any)
}

type Config struct {
	IdleRoomTimeout time.Duration // empty waiting room -> inactive
	InactiveAfter   time.Duration // no activity at all -> swept
	SessionTTL      time.Duration // disconnected session -> purged
	AdvanceDelay    time.Duration // round-end -> next round
	SweepInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleRoomTimeout: 5 * time.Minute,
		InactiveAfter:   30 * time.Minute,
		SessionTTL:      2 * time.Hour,
		AdvanceDelay:    5 * time.Second,
		SweepInterval:   time.Minute,
	}
}

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLength = 6

// liveRoom is the in-memory state of one active room code. All mutation
// happens under mu, held across the read-modify-write-persist sequence, so
// operations on a single room are strictly serialized. Each timer carries
// its own epoch counter so it is invalidated only when its own premise no
// longer holds: a reconnection disarms the idle eviction but must leave a
// pending round advance running.
type liveRoom struct {
	mu           sync.Mutex
	code         string
	room         *entities.Room
	connected    map[string]string // user id -> display name
	lastActivity time.Time
	game         *game.State

	idleEpoch    uint64
	advanceEpoch uint64
	idleTimer    *time.Timer
	advanceTimer *time.Timer
}

// Coordinator owns the live-room table and drives every room mutation.
// Cross-room operations run concurrently; same-room operations serialize on
// the room's own lock.
type Coordinator struct {
	mu    sync.Mutex
	rooms map[string]*liveRoom

	store    Store
	sessions *session.Registry
	out      Dispatcher
	cfg      Config
	log      zerolog.Logger

	bg   conc.WaitGroup
	done chan struct{}
}

func NewCoordinator(st Store, sessions *session.Registry, out Dispatcher, cfg Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		rooms:    make(map[string]*liveRoom),
		store:    st,
		sessions: sessions,
		out:      out,
		cfg:      cfg,
		log:      log.With().Str("component", "coordinator").Logger(),
	}
}

// WarmUp restores live state for every persisted room that is still alive,
// so reconnecting clients after a restart find their rooms in place.
func (c *Coordinator) WarmUp() error {
	rooms, err := c.store.ListRooms()
	if err != nil {
		return err
	}
	iter.ForEach(rooms, func(r *entities.Room) {
		if r.Status != entities.RoomWaiting && r.Status != entities.RoomInProgress {
			return
		}
		lr, err := c.getOrLoad(r.Code)
		if err != nil {
			c.log.Error().Err(err).Str("room", r.Code).Msg("warm-up load failed")
			return
		}
		// Nobody is connected yet after a restart; empty waiting rooms
		// start their eviction countdown immediately.
		lr.mu.Lock()
		if lr.room.Status == entities.RoomWaiting {
			c.armIdleTimer(lr)
		}
		lr.mu.Unlock()
	})
	c.log.Info().Int("rooms", len(rooms)).Msg("live room table warmed up")
	return nil
}

// StartSweeper runs the periodic idle sweep until Close is called. Sweep
// errors are logged, never fatal; no caller is waiting on them.
func (c *Coordinator) StartSweeper() {
	c.done = make(chan struct{})
	c.bg.Go(func() {
		ticker := time.NewTicker(c.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	})
}

// Close stops the sweeper and cancels every armed room timer.
func (c *Coordinator) Close() {
	if c.done != nil {
		close(c.done)
	}
	c.bg.Wait()

	c.mu.Lock()
	live := make([]*liveRoom, 0, len(c.rooms))
	for _, lr := range c.rooms {
		live = append(live, lr)
	}
	c.mu.Unlock()

	for _, lr := range live {
		lr.mu.Lock()
		c.invalidateTimers(lr)
		lr.mu.Unlock()
	}
}

// Create makes a new waiting room hosted by the creator, who takes the first
// seat immediately.
func (c *Coordinator) Create(userID, userName, title, image string, private bool) (*Snapshot, error) {
	code, err := c.newRoomCode()
	if err != nil {
		return nil, err
	}

	r := &entities.Room{
		ID:       uuid.New(),
		Code:     code,
		Title:    title,
		Image:    image,
		Private:  private,
		Status:   entities.RoomWaiting,
		HostID:   userID,
		HostName: userName,
	}
	if err := c.store.CreateRoom(r); err != nil {
		return nil, err
	}
	if _, err := c.store.AttachMember(r.ID, userID, userName); err != nil {
		return nil, err
	}
	if _, err := c.sessions.Resolve(userID, userName); err != nil {
		return nil, err
	}

	lr, err := c.getOrLoad(code)
	if err != nil {
		return nil, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	c.armIdleTimer(lr)
	snap := c.snapshotLocked(lr)
	c.out.ToAll(broadcast.EventGameStateUpdate, snap)
	return snap, nil
}

// Join seats the user in the room, or reconnects an existing member.
// Precondition order: existence, one-room-per-user, in-progress gate,
// capacity, privacy.
func (c *Coordinator) Join(code, userID, userName string) (*Snapshot, error) {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return nil, err
	}

	// Force-leave any other room before touching this one; never hold two
	// room locks at once.
	var formerRooms []string
	if sess := c.sessions.Get(userID); sess != nil {
		for other := range sess.Rooms {
			if other != code {
				formerRooms = append(formerRooms, other)
				if err := c.Leave(other, userID); err != nil {
					c.log.Warn().Err(err).Str("room", other).Str("user", userID).Msg("force-leave failed")
				}
			}
		}
	}

	snap, tookSeat, err := c.joinLive(lr, userID, userName)
	if err != nil {
		return nil, err
	}
	if tookSeat {
		// The seat may have moved here from another room; keep those
		// rooms' cached snapshots honest too.
		for _, other := range formerRooms {
			c.refreshRoom(other)
		}
	}
	return snap, nil
}

func (c *Coordinator) joinLive(lr *liveRoom, userID, userName string) (*Snapshot, bool, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	isMember := memberOf(lr.room, userID) != nil
	if lr.room.Status != entities.RoomWaiting && !isMember {
		return nil, false, ErrGameInProgress
	}
	if !isMember && len(lr.room.Members) >= entities.MaxPlayers {
		return nil, false, ErrRoomFull
	}
	if lr.room.Private && !isMember && userID != lr.room.HostID {
		return nil, false, ErrPrivateRoomDenied
	}

	if !isMember {
		if _, err := c.store.AttachMember(lr.room.ID, userID, userName); err != nil {
			if errors.Is(err, store.ErrRoomFull) {
				return nil, false, ErrRoomFull
			}
			return nil, false, err
		}
		if err := c.refreshLocked(lr); err != nil {
			return nil, false, err
		}
	}

	lr.connected[userID] = userName
	lr.lastActivity = time.Now()
	// A join disarms the idle eviction only. A pending round advance stays
	// armed: a member reconnecting during the round-end window must not
	// stall the game.
	c.cancelIdleTimer(lr)

	if _, err := c.sessions.Resolve(userID, userName); err != nil {
		return nil, false, err
	}
	if err := c.sessions.JoinedRoom(userID, lr.code); err != nil {
		return nil, false, err
	}

	snap := c.snapshotLocked(lr)
	if !isMember {
		c.out.ToRoom(lr.code, broadcast.EventPlayerJoined, map[string]any{"userId": userID, "userName": userName})
	}
	c.out.ToAll(broadcast.EventGameStateUpdate, snap)
	return snap, !isMember, nil
}

// refreshRoom re-reads one room's persisted state into its live cache and
// republishes the snapshot. A missing or evicted room is a no-op.
func (c *Coordinator) refreshRoom(code string) {
	c.mu.Lock()
	lr, ok := c.rooms[code]
	c.mu.Unlock()
	if !ok {
		return
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if err := c.refreshLocked(lr); err != nil {
		c.log.Warn().Err(err).Str("room", code).Msg("cache refresh failed")
		return
	}
	c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
}

// Leave disconnects the user's live presence. The member row stays; a leave
// is disconnect-from-session, not un-joining the game.
func (c *Coordinator) Leave(code, userID string) error {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	delete(lr.connected, userID)
	lr.lastActivity = time.Now()
	if err := c.sessions.LeftRoom(userID, code); err != nil {
		c.log.Error().Err(err).Str("user", userID).Msg("session update failed on leave")
	}
	c.out.ToRoom(code, broadcast.EventPlayerLeft, map[string]any{"userId": userID})

	if lr.room.Status == entities.RoomWaiting && lr.room.HostID == userID {
		if next := nextHost(lr.room, userID); next != nil {
			err := c.store.UpdateRoom(lr.room.ID, map[string]any{
				"host_id":   next.UserID,
				"host_name": next.Name,
			})
			if err != nil {
				return err
			}
			if err := c.refreshLocked(lr); err != nil {
				return err
			}
			c.out.ToRoom(code, broadcast.EventHostChanged, map[string]any{
				"newHostId":   next.UserID,
				"newHostName": next.Name,
			})
		}
	}

	if len(lr.connected) == 0 && lr.room.Status == entities.RoomWaiting {
		c.armIdleTimer(lr)
	}

	c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
	return nil
}

// SetReady flips a member's ready flag. Only legal while the room waits.
func (c *Coordinator) SetReady(code, userID string, ready bool) (*Snapshot, error) {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return nil, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.room.Status != entities.RoomWaiting {
		return nil, ErrGameInProgress
	}
	if memberOf(lr.room, userID) == nil {
		return nil, ErrNotMember
	}
	if err := c.store.SetMemberReady(lr.room.ID, userID, ready); err != nil {
		return nil, err
	}
	if err := c.refreshLocked(lr); err != nil {
		return nil, err
	}
	lr.lastActivity = time.Now()

	snap := c.snapshotLocked(lr)
	c.out.ToRoom(code, broadcast.EventPlayerReady, map[string]any{"userId": userID, "isReady": ready})
	c.out.ToAll(broadcast.EventGameStateUpdate, snap)
	return snap, nil
}

// StartGame begins round one. Host only, exactly four members, all ready.
// Roles go out as private unicasts, never in the room broadcast.
func (c *Coordinator) StartGame(code, requesterID string) (*Snapshot, error) {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return nil, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.room.Status != entities.RoomWaiting {
		return nil, ErrGameInProgress
	}
	if requesterID != lr.room.HostID {
		return nil, ErrNotHost
	}
	if len(lr.room.Members) != entities.MaxPlayers {
		return nil, ErrWrongPlayerCount
	}
	players := make([]game.Player, 0, entities.MaxPlayers)
	for _, m := range lr.room.Members {
		if !m.Ready {
			return nil, ErrPlayersNotReady
		}
		players = append(players, game.Player{ID: m.UserID, Name: m.Name})
	}

	g, err := game.NewState(players)
	if err != nil {
		return nil, err
	}
	if err := g.BeginRound(1); err != nil {
		return nil, err
	}
	if err := c.persistGameLocked(lr, g, entities.RoomInProgress); err != nil {
		return nil, err
	}
	lr.lastActivity = time.Now()
	c.invalidateTimers(lr)

	snap := c.snapshotLocked(lr)
	c.out.ToRoom(code, broadcast.EventGameStarted, map[string]any{"roomCode": code, "round": 1})
	c.sendRoleUnicasts(lr)
	c.out.ToAll(broadcast.EventGameStateUpdate, snap)
	return snap, nil
}

// GameAction dispatches the in-game operations: chat-message, sipahi-guess
// and end-round. Rejections are typed and leave the round state untouched.
func (c *Coordinator) GameAction(code, userID, action string, data map[string]any) error {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.room.Status != entities.RoomInProgress || lr.game == nil {
		return ErrNoActiveGame
	}

	switch action {
	case "chat-message":
		text, _ := data["message"].(string)
		name := lr.connected[userID]
		if name == "" {
			if m := memberOf(lr.room, userID); m != nil {
				name = m.Name
			}
		}
		g := lr.game.Clone()
		g.AppendChat(userID, name, text)
		if err := c.persistGameLocked(lr, g, lr.room.Status); err != nil {
			return err
		}
		lr.lastActivity = time.Now()
		c.out.ToRoom(code, broadcast.EventChatMessage, map[string]any{"userId": userID, "userName": name, "message": text})
		return nil

	case "sipahi-guess":
		suspectID, _ := data["suspectId"].(string)
		g := lr.game.Clone()
		if err := g.SipahiGuess(userID, suspectID); err != nil {
			return err
		}
		if err := c.persistGameLocked(lr, g, lr.room.Status); err != nil {
			return err
		}
		lr.lastActivity = time.Now()
		c.out.ToRoom(code, broadcast.EventSipahiGuessed, map[string]any{"userId": userID, "suspectId": suspectID})
		c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
		return nil

	case "end-round":
		g := lr.game.Clone()
		if err := g.EndRound(userID, lr.room.HostID); err != nil {
			return err
		}
		if err := c.persistGameLocked(lr, g, lr.room.Status); err != nil {
			return err
		}
		lr.lastActivity = time.Now()
		view := g.View()
		c.out.ToRoom(code, broadcast.EventRoundEnded, map[string]any{
			"round":        view.Round,
			"roles":        view.Roles,
			"guessCorrect": view.GuessCorrect,
			"scores":       view.Scores,
		})
		c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
		c.armAdvanceTimer(lr)
		return nil

	default:
		return ErrUnknownAction
	}
}

// Snapshot returns the canonical view of a room without mutating anything.
func (c *Coordinator) Snapshot(code string) (*Snapshot, error) {
	lr, err := c.getOrLoad(code)
	if err != nil {
		return nil, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return c.snapshotLocked(lr), nil
}

// ListRooms mirrors the lobby feed for the REST surface.
func (c *Coordinator) ListRooms() ([]*Snapshot, error) {
	rooms, err := c.store.ListRooms()
	if err != nil {
		return nil, err
	}
	snaps := make([]*Snapshot, 0, len(rooms))
	for i := range rooms {
		r := &rooms[i]
		connected := map[string]string{}
		c.mu.Lock()
		lr := c.rooms[r.Code]
		c.mu.Unlock()
		if lr != nil {
			lr.mu.Lock()
			for id, name := range lr.connected {
				connected[id] = name
			}
			lr.mu.Unlock()
		}
		snaps = append(snaps, buildSnapshot(r, connected, nil))
	}
	return snaps, nil
}

// --- internals ---

// getOrLoad returns the live state for a room code, reading through to the
// store on first access. Inactive rooms are not resurrected.
func (c *Coordinator) getOrLoad(code string) (*liveRoom, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	c.mu.Lock()
	if lr, ok := c.rooms[code]; ok {
		c.mu.Unlock()
		return lr, nil
	}
	c.mu.Unlock()

	r, err := c.store.RoomByCode(code)
	if errors.Is(err, store.ErrRoomNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.Status == entities.RoomInactive {
		return nil, ErrRoomNotFound
	}

	lr := &liveRoom{
		code:         code,
		room:         r,
		connected:    make(map[string]string),
		lastActivity: time.Now(),
	}
	if len(r.GameState) > 0 && r.Status != entities.RoomWaiting {
		g, err := game.Decode(r.GameState)
		if err != nil {
			c.log.Error().Err(err).Str("room", code).Msg("stored game state unreadable, dropping it")
		} else {
			lr.game = g
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.rooms[code]; ok {
		return existing, nil
	}
	c.rooms[code] = lr
	return lr, nil
}

// refreshLocked re-reads the persisted room after an accepted write. The
// cache is never hand-patched field by field.
func (c *Coordinator) refreshLocked(lr *liveRoom) error {
	r, err := c.store.RoomByCode(lr.code)
	if err != nil {
		return err
	}
	lr.room = r
	return nil
}

func (c *Coordinator) snapshotLocked(lr *liveRoom) *Snapshot {
	return buildSnapshot(lr.room, lr.connected, lr.game)
}

// persistGameLocked writes the blob and, on success, swaps the new game
// state in and refreshes the cached room.
func (c *Coordinator) persistGameLocked(lr *liveRoom, g *game.State, status entities.RoomStatus) error {
	blob, err := g.Encode()
	if err != nil {
		return err
	}
	if err := c.store.SaveGameState(lr.room.ID, status, blob); err != nil {
		return err
	}
	lr.game = g
	return c.refreshLocked(lr)
}

func (c *Coordinator) sendRoleUnicasts(lr *liveRoom) {
	if lr.game == nil {
		return
	}
	for _, p := range lr.game.Players {
		if role, ok := lr.game.RoleOf(p.ID); ok {
			c.out.ToUser(p.ID, broadcast.EventRoleAssigned, map[string]any{
				"role":  role,
				"round": lr.game.Round,
			})
		}
	}
}

// cancelIdleTimer bumps the idle epoch so an armed eviction becomes a no-op,
// and stops the timer outright where possible.
func (c *Coordinator) cancelIdleTimer(lr *liveRoom) {
	lr.idleEpoch++
	if lr.idleTimer != nil {
		lr.idleTimer.Stop()
		lr.idleTimer = nil
	}
}

// cancelAdvanceTimer does the same for the pending round advance.
func (c *Coordinator) cancelAdvanceTimer(lr *liveRoom) {
	lr.advanceEpoch++
	if lr.advanceTimer != nil {
		lr.advanceTimer.Stop()
		lr.advanceTimer = nil
	}
}

// invalidateTimers cancels both timers; used when the room itself is torn
// down or changes state wholesale.
func (c *Coordinator) invalidateTimers(lr *liveRoom) {
	c.cancelIdleTimer(lr)
	c.cancelAdvanceTimer(lr)
}

// armIdleTimer schedules eviction of an empty waiting room.
func (c *Coordinator) armIdleTimer(lr *liveRoom) {
	c.cancelIdleTimer(lr)
	epoch := lr.idleEpoch
	code := lr.code
	lr.idleTimer = time.AfterFunc(c.cfg.IdleRoomTimeout, func() {
		c.expireIdleRoom(code, epoch)
	})
}

func (c *Coordinator) expireIdleRoom(code string, epoch uint64) {
	c.mu.Lock()
	lr, ok := c.rooms[code]
	c.mu.Unlock()
	if !ok {
		return
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.idleEpoch != epoch || lr.room.Status != entities.RoomWaiting || len(lr.connected) > 0 {
		return
	}

	if err := c.store.UpdateRoom(lr.room.ID, map[string]any{"status": entities.RoomInactive}); err != nil {
		c.log.Error().Err(err).Str("room", code).Msg("idle eviction write failed")
		return
	}
	lr.room.Status = entities.RoomInactive

	// The room is cleaning up: release every seat so the members fully
	// leave and are free to be seated elsewhere without a reassignment.
	for _, m := range lr.room.Members {
		if err := c.store.DetachMember(m.UserID); err != nil {
			c.log.Warn().Err(err).Str("room", code).Str("user", m.UserID).Msg("member detach failed")
		}
	}

	c.mu.Lock()
	delete(c.rooms, code)
	c.mu.Unlock()

	c.log.Info().Str("room", code).Msg("idle room evicted")
	c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
}

// armAdvanceTimer schedules the automatic next round after a round ends.
func (c *Coordinator) armAdvanceTimer(lr *liveRoom) {
	c.cancelAdvanceTimer(lr)
	epoch := lr.advanceEpoch
	code := lr.code
	lr.advanceTimer = time.AfterFunc(c.cfg.AdvanceDelay, func() {
		c.advanceRound(code, epoch)
	})
}

func (c *Coordinator) advanceRound(code string, epoch uint64) {
	c.mu.Lock()
	lr, ok := c.rooms[code]
	c.mu.Unlock()
	if !ok {
		return
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.advanceEpoch != epoch || lr.room.Status != entities.RoomInProgress || lr.game == nil {
		return
	}

	g := lr.game.Clone()
	if err := g.BeginRound(g.Round + 1); err != nil {
		c.log.Error().Err(err).Str("room", code).Msg("auto-advance failed")
		return
	}
	if err := c.persistGameLocked(lr, g, lr.room.Status); err != nil {
		c.log.Error().Err(err).Str("room", code).Msg("auto-advance write failed")
		return
	}
	lr.lastActivity = time.Now()

	c.sendRoleUnicasts(lr)
	c.out.ToAll(broadcast.EventGameStateUpdate, c.snapshotLocked(lr))
}

// sweep finalizes stale rooms in the store, drops their live state and
// purges long-disconnected sessions.
func (c *Coordinator) sweep() {
	cutoff := time.Now().Add(-c.cfg.InactiveAfter)

	if n, err := c.store.SweepStale(cutoff); err != nil {
		c.log.Error().Err(err).Msg("room sweep failed")
	} else if n > 0 {
		c.log.Info().Int64("rooms", n).Msg("stale rooms finalized")
	}

	c.mu.Lock()
	var stale []*liveRoom
	for _, lr := range c.rooms {
		stale = append(stale, lr)
	}
	c.mu.Unlock()

	for _, lr := range stale {
		lr.mu.Lock()
		idle := len(lr.connected) == 0 && lr.lastActivity.Before(cutoff)
		if idle {
			c.invalidateTimers(lr)
		}
		code := lr.code
		lr.mu.Unlock()
		if idle {
			c.mu.Lock()
			delete(c.rooms, code)
			c.mu.Unlock()
		}
	}

	if n, err := c.sessions.Sweep(time.Now().Add(-c.cfg.SessionTTL)); err != nil {
		c.log.Error().Err(err).Msg("session sweep failed")
	} else if n > 0 {
		c.log.Info().Int("sessions", n).Msg("stale sessions purged")
	}
}

func (c *Coordinator) newRoomCode() (string, error) {
	for i := 0; i < 16; i++ {
		code, err := randutil.String(roomCodeLength, roomCodeAlphabet)
		if err != nil {
			return "", err
		}
		_, err = c.store.RoomByCode(code)
		if errors.Is(err, store.ErrRoomNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not allocate a unique room code")
}

func memberOf(r *entities.Room, userID string) *entities.Member {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}

// nextHost picks the earliest-joined member other than the leaver. Members
// are preloaded in join order.
func nextHost(r *entities.Room, leavingID string) *entities.Member {
	for i := range r.Members {
		if r.Members[i].UserID != leavingID {
			return &r.Members[i]
		}
	}
	return nil
}
