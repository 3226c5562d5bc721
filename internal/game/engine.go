package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

type Role string

const (
	RoleRaja   Role = "raja"
	RoleMantri Role = "mantri"
	RoleChor   Role = "chor"
	RoleSipahi Role = "sipahi"
)

type Phase string

const (
	PhaseRoleAssignment Phase = "role-assignment"
	PhaseGuessMade      Phase = "guess-made"
	PhaseRoundEnd       Phase = "round-end"
)

const (
	PlayersPerGame = 4
	LogCap         = 50

	RajaPoints   = 1000
	MantriPoints = 800
	ChorPoints   = 500
	SipahiPoints = 600
)

var allRoles = [PlayersPerGame]Role{RoleRaja, RoleMantri, RoleChor, RoleSipahi}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LogEntry struct {
	System bool      `json:"system"`
	UserID string    `json:"userId,omitempty"`
	Name   string    `json:"name,omitempty"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// State is one room's round state machine. It is pure data plus transitions;
// callers serialize access and persist the state after each mutation.
type State struct {
	Phase        Phase           `json:"phase"`
	Round        int             `json:"round"`
	Players      []Player        `json:"players"`
	Roles        map[string]Role `json:"roles"`
	Guess        string          `json:"guess,omitempty"`
	GuessMade    bool            `json:"guessMade"`
	GuessCorrect bool            `json:"guessCorrect"`
	Revealed     bool            `json:"revealedRoles"`
	Scores       map[string]int  `json:"scores"`
	Log          []LogEntry      `json:"log"`
}

// NewState prepares a game for exactly four players. Roles are not assigned
// until BeginRound.
func NewState(players []Player) (*State, error) {
	if len(players) != PlayersPerGame {
		return nil, ErrWrongPlayerCount
	}
	scores := make(map[string]int, PlayersPerGame)
	for _, p := range players {
		scores[p.ID] = 0
	}
	return &State{
		Players: append([]Player(nil), players...),
		Roles:   make(map[string]Role, PlayersPerGame),
		Scores:  scores,
	}, nil
}

// Decode restores a persisted game blob.
func Decode(blob []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &s, nil
}

func (s *State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Clone deep-copies the state. The coordinator mutates a clone and swaps it
// in only after the store write succeeds, so a failed write leaves the live
// state untouched.
func (s *State) Clone() *State {
	c := &State{
		Phase:        s.Phase,
		Round:        s.Round,
		Players:      append([]Player(nil), s.Players...),
		Roles:        make(map[string]Role, len(s.Roles)),
		Guess:        s.Guess,
		GuessMade:    s.GuessMade,
		GuessCorrect: s.GuessCorrect,
		Revealed:     s.Revealed,
		Scores:       make(map[string]int, len(s.Scores)),
		Log:          append([]LogEntry(nil), s.Log...),
	}
	for id, role := range s.Roles {
		c.Roles[id] = role
	}
	for id, score := range s.Scores {
		c.Scores[id] = score
	}
	return c
}

// BeginRound deals the four roles uniformly at random. rand.Shuffle is a
// Fisher-Yates shuffle, so every assignment is equally likely.
func (s *State) BeginRound(round int) error {
	if len(s.Players) != PlayersPerGame {
		return ErrWrongPlayerCount
	}
	roles := allRoles
	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	s.Roles = make(map[string]Role, PlayersPerGame)
	for i, p := range s.Players {
		s.Roles[p.ID] = roles[i]
	}
	s.Round = round
	s.Phase = PhaseRoleAssignment
	s.Guess = ""
	s.GuessMade = false
	s.GuessCorrect = false
	s.Revealed = false
	s.appendSystem(fmt.Sprintf("Round %d started, roles have been dealt", round))
	return nil
}

// RoleOf reports the requester's own role. Used for the private unicast.
func (s *State) RoleOf(userID string) (Role, bool) {
	role, ok := s.Roles[userID]
	return role, ok
}

// SipahiGuess records the sipahi's accusation. The guess may be revised until
// the round ends; correctness is resolved now but not revealed.
func (s *State) SipahiGuess(requesterID, suspectID string) error {
	if s.Phase != PhaseRoleAssignment && s.Phase != PhaseGuessMade {
		return ErrWrongPhase
	}
	if s.Roles[requesterID] != RoleSipahi {
		return ErrNotSipahi
	}
	if _, ok := s.Roles[suspectID]; !ok {
		return ErrUnknownPlayer
	}
	s.Guess = suspectID
	s.GuessMade = true
	s.GuessCorrect = s.Roles[suspectID] == RoleChor
	s.Phase = PhaseGuessMade
	return nil
}

// EndRound resolves scoring and reveals the role map. Only the room host or
// the player holding raja may close a round.
func (s *State) EndRound(requesterID, hostID string) error {
	if s.Phase != PhaseRoleAssignment && s.Phase != PhaseGuessMade {
		return ErrWrongPhase
	}
	if requesterID != hostID && s.Roles[requesterID] != RoleRaja {
		return ErrNotAuthorizedToEndRound
	}

	for id, role := range s.Roles {
		switch role {
		case RoleRaja:
			s.Scores[id] += RajaPoints
		case RoleMantri:
			s.Scores[id] += MantriPoints
		case RoleChor:
			if !s.GuessMade || !s.GuessCorrect {
				s.Scores[id] += ChorPoints
			}
		case RoleSipahi:
			if s.GuessMade && s.GuessCorrect {
				s.Scores[id] += SipahiPoints
			}
		}
	}

	s.Revealed = true
	s.Phase = PhaseRoundEnd
	s.appendSystem(fmt.Sprintf("Round %d over, chor was %s", s.Round, s.nameOf(s.chorID())))
	return nil
}

// AppendChat adds a player message to the capped log. Legal in any phase.
func (s *State) AppendChat(userID, name, text string) {
	s.appendEntry(LogEntry{UserID: userID, Name: name, Text: text, At: time.Now()})
}

func (s *State) appendSystem(text string) {
	s.appendEntry(LogEntry{System: true, Text: text, At: time.Now()})
}

func (s *State) appendEntry(e LogEntry) {
	s.Log = append(s.Log, e)
	if len(s.Log) > LogCap {
		s.Log = s.Log[len(s.Log)-LogCap:]
	}
}

func (s *State) chorID() string {
	for id, role := range s.Roles {
		if role == RoleChor {
			return id
		}
	}
	return ""
}

func (s *State) nameOf(userID string) string {
	for _, p := range s.Players {
		if p.ID == userID {
			return p.Name
		}
	}
	return userID
}

// View is the shape of the game state safe to broadcast room-wide. The role
// map is withheld until EndRound reveals it so a snapshot can never leak
// another player's role.
type View struct {
	Phase        Phase           `json:"phase"`
	Round        int             `json:"round"`
	Players      []Player        `json:"players"`
	Roles        map[string]Role `json:"roles,omitempty"`
	GuessMade    bool            `json:"guessMade"`
	GuessCorrect *bool           `json:"guessCorrect,omitempty"`
	Revealed     bool            `json:"revealedRoles"`
	Scores       map[string]int  `json:"scores"`
	Log          []LogEntry      `json:"log"`
}

func (s *State) View() *View {
	v := &View{
		Phase:     s.Phase,
		Round:     s.Round,
		Players:   append([]Player(nil), s.Players...),
		GuessMade: s.GuessMade,
		Revealed:  s.Revealed,
		Scores:    make(map[string]int, len(s.Scores)),
		Log:       append([]LogEntry(nil), s.Log...),
	}
	for id, score := range s.Scores {
		v.Scores[id] = score
	}
	if s.Revealed {
		v.Roles = make(map[string]Role, len(s.Roles))
		for id, role := range s.Roles {
			v.Roles[id] = role
		}
		correct := s.GuessCorrect
		v.GuessCorrect = &correct
	}
	return v
}
