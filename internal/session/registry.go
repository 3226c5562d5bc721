package session

import (
	"fmt"
	"time"

	memdb "github.com/hashicorp/go-memdb"
)

// Session is the ephemeral per-identity record. DisconnectedAt is stamped,
// not cleared, on disconnect; the sweep uses it to purge stale identities.
type Session struct {
	UserID         string
	Name           string
	ConnectedAt    time.Time
	DisconnectedAt time.Time
	Rooms          map[string]struct{}
}

const tableSessions = "sessions"

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableSessions: {
			Name: tableSessions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "UserID"},
				},
			},
		},
	},
}

// Registry owns the session table. memdb treats inserted objects as
// immutable, so every mutation clones the record before re-inserting it.
type Registry struct {
	db *memdb.MemDB
}

func NewRegistry() (*Registry, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("session schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Resolve returns the session for userID, creating it on first contact.
// Idempotent; a reconnect refreshes the name and clears nothing.
func (r *Registry) Resolve(userID, name string) (*Session, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableSessions, "id", userID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	var s *Session
	if raw == nil {
		s = &Session{
			UserID:      userID,
			Name:        name,
			ConnectedAt: time.Now(),
			Rooms:       map[string]struct{}{},
		}
	} else {
		s = raw.(*Session).clone()
		if name != "" {
			s.Name = name
		}
	}
	if err := txn.Insert(tableSessions, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	txn.Commit()
	return s.clone(), nil
}

// Get returns the session for userID, or nil.
func (r *Registry) Get(userID string) *Session {
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableSessions, "id", userID)
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*Session).clone()
}

// JoinedRoom records that the user's live connection entered roomCode.
func (r *Registry) JoinedRoom(userID, roomCode string) error {
	return r.mutate(userID, func(s *Session) {
		s.Rooms[roomCode] = struct{}{}
		s.DisconnectedAt = time.Time{}
	})
}

// LeftRoom removes roomCode from the user's joined set.
func (r *Registry) LeftRoom(userID, roomCode string) error {
	return r.mutate(userID, func(s *Session) {
		delete(s.Rooms, roomCode)
	})
}

// RecordDisconnect stamps the disconnect time. The session is kept so a
// reconnecting tab can resume its seat.
func (r *Registry) RecordDisconnect(userID string) error {
	return r.mutate(userID, func(s *Session) {
		s.DisconnectedAt = time.Now()
	})
}

func (r *Registry) mutate(userID string, fn func(*Session)) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableSessions, "id", userID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if raw == nil {
		return nil
	}
	s := raw.(*Session).clone()
	fn(s)
	if err := txn.Insert(tableSessions, s); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	txn.Commit()
	return nil
}

// Sweep deletes sessions disconnected before cutoff. Connected sessions
// (zero DisconnectedAt) are never touched.
func (r *Registry) Sweep(cutoff time.Time) (int, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableSessions, "id")
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}
	var stale []*Session
	for raw := it.Next(); raw != nil; raw = it.Next() {
		s := raw.(*Session)
		if !s.DisconnectedAt.IsZero() && s.DisconnectedAt.Before(cutoff) {
			stale = append(stale, s)
		}
	}
	for _, s := range stale {
		if err := txn.Delete(tableSessions, s); err != nil {
			return 0, fmt.Errorf("delete session: %w", err)
		}
	}
	txn.Commit()
	return len(stale), nil
}

func (s *Session) clone() *Session {
	c := *s
	c.Rooms = make(map[string]struct{}, len(s.Rooms))
	for code := range s.Rooms {
		c.Rooms[code] = struct{}{}
	}
	return &c
}
