package room

import (
	"time"

	"raja-mantri-server/internal/entities"
	"raja-mantri-server/internal/game"
)

type Capacity struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

type MemberView struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"userName"`
	Ready     bool      `json:"isReady"`
	Connected bool      `json:"isConnected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Snapshot is the canonical room view broadcast to clients. The game view
// inside it carries no role map until the round is revealed.
type Snapshot struct {
	Code      string              `json:"roomCode"`
	Title     string              `json:"title,omitempty"`
	Image     string              `json:"image,omitempty"`
	Private   bool                `json:"isPrivate"`
	Status    entities.RoomStatus `json:"status"`
	HostID    string              `json:"hostId"`
	HostName  string              `json:"hostName"`
	Capacity  Capacity            `json:"capacity"`
	Members   []MemberView        `json:"players"`
	Game      *game.View          `json:"game,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// buildSnapshot assembles the canonical view from a persisted room plus the
// live connected set and game state.
func buildSnapshot(r *entities.Room, connected map[string]string, g *game.State) *Snapshot {
	snap := &Snapshot{
		Code:      r.Code,
		Title:     r.Title,
		Image:     r.Image,
		Private:   r.Private,
		Status:    r.Status,
		HostID:    r.HostID,
		HostName:  r.HostName,
		Capacity:  Capacity{Current: len(r.Members), Max: entities.MaxPlayers},
		CreatedAt: r.CreatedAt,
	}
	if r.Counter != nil {
		snap.Capacity = Capacity{Current: r.Counter.Current, Max: r.Counter.Max}
	}
	for _, m := range r.Members {
		_, online := connected[m.UserID]
		snap.Members = append(snap.Members, MemberView{
			UserID:    m.UserID,
			Name:      m.Name,
			Ready:     m.Ready,
			Connected: online,
			JoinedAt:  m.JoinedAt,
		})
	}
	if g != nil {
		snap.Game = g.View()
	}
	return snap
}
