package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"raja-mantri-server/internal/broadcast"
	"raja-mantri-server/internal/room"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound event names on the realtime channel.
const (
	msgJoinRoom    = "join-room"
	msgLeaveRoom   = "leave-room"
	msgPlayerReady = "player-ready"
	msgStartGame   = "start-game"
	msgGameAction  = "game-action"
)

type wsMessage struct {
	Type     string         `json:"type"`
	RoomCode string         `json:"roomCode,omitempty"`
	UserID   string         `json:"userId,omitempty"`
	UserName string         `json:"userName,omitempty"`
	IsReady  bool           `json:"isReady,omitempty"`
	Action   string         `json:"action,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type ack struct {
	Event   string `json:"event"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Room    any    `json:"room,omitempty"`
}

// wsHandler runs one realtime connection: authenticate, rate-limit, register
// with the dispatcher, then loop dispatching inbound events. Every event is
// acknowledged; state fan-out arrives through the dispatcher outbox.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(r.RemoteAddr) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	id, err := s.tokens.Check(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := id.String()

	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer socket.Close()

	client := s.out.Register(userID)

	if _, err := s.sessions.Resolve(userID, ""); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("session resolve failed")
		s.out.Unregister(client)
		return
	}

	// Write pump: the outbox is the only writer on this socket.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for event := range client.Out {
			if err := socket.WriteJSON(event); err != nil {
				return
			}
		}
	}()

	joined := make(map[string]struct{})
	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(client, "malformed message")
			continue
		}
		if msg.UserID != "" && msg.UserID != userID {
			s.sendAck(client, msg.Type, ack{Success: false, Error: room.ErrUnauthorized.Error()})
			continue
		}

		s.dispatch(client, userID, msg, joined)
	}

	// Disconnect: stamp the session and drop live presence everywhere. The
	// member rows stay so the player can reconnect into a running game.
	for code := range joined {
		if err := s.coord.Leave(code, userID); err != nil {
			s.log.Warn().Err(err).Str("room", code).Str("user", userID).Msg("leave on disconnect failed")
		}
	}
	if err := s.sessions.RecordDisconnect(userID); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("disconnect stamp failed")
	}
	s.out.Unregister(client)
	<-writeDone
	s.log.Info().Str("user", userID).Msg("connection closed")
}

func (s *Server) dispatch(client *broadcast.Client, userID string, msg wsMessage, joined map[string]struct{}) {
	switch msg.Type {
	case msgJoinRoom:
		snap, err := s.coord.Join(msg.RoomCode, userID, msg.UserName)
		if err != nil {
			s.sendAck(client, msg.Type, ack{Success: false, Error: err.Error()})
			s.sendError(client, err.Error())
			return
		}
		s.out.Subscribe(client, snap.Code)
		joined[snap.Code] = struct{}{}
		s.send(client, broadcast.Event{Type: broadcast.EventRoomState, Payload: snap})
		s.sendAck(client, msg.Type, ack{Success: true, Room: snap})

	case msgLeaveRoom:
		if err := s.coord.Leave(msg.RoomCode, userID); err != nil {
			s.sendAck(client, msg.Type, ack{Success: false, Error: err.Error()})
			return
		}
		s.out.Unsubscribe(client, msg.RoomCode)
		delete(joined, msg.RoomCode)
		s.sendAck(client, msg.Type, ack{Success: true})

	case msgPlayerReady:
		snap, err := s.coord.SetReady(msg.RoomCode, userID, msg.IsReady)
		if err != nil {
			s.sendAck(client, msg.Type, ack{Success: false, Error: err.Error()})
			return
		}
		s.sendAck(client, msg.Type, ack{Success: true, Room: snap})

	case msgStartGame:
		snap, err := s.coord.StartGame(msg.RoomCode, userID)
		if err != nil {
			s.sendAck(client, msg.Type, ack{Success: false, Error: err.Error()})
			s.sendError(client, err.Error())
			return
		}
		s.sendAck(client, msg.Type, ack{Success: true, Room: snap})

	case msgGameAction:
		if err := s.coord.GameAction(msg.RoomCode, userID, msg.Action, msg.Data); err != nil {
			s.sendAck(client, msg.Type, ack{Success: false, Error: err.Error()})
			s.sendError(client, err.Error())
			return
		}
		s.sendAck(client, msg.Type, ack{Success: true})

	default:
		s.sendError(client, "unknown event type")
	}
}

func (s *Server) send(client *broadcast.Client, e broadcast.Event) {
	select {
	case client.Out <- e:
	default:
		s.log.Warn().Str("user", client.UserID).Msg("outbox full, reply dropped")
	}
}

func (s *Server) sendAck(client *broadcast.Client, event string, a ack) {
	a.Event = event
	s.send(client, broadcast.Event{Type: "ack", Payload: a})
}

func (s *Server) sendError(client *broadcast.Client, msg string) {
	s.send(client, broadcast.Event{Type: broadcast.EventError, Payload: map[string]string{"message": msg}})
}
