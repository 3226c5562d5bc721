package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"raja-mantri-server/internal/auth"
	"raja-mantri-server/internal/broadcast"
	"raja-mantri-server/internal/config"
	"raja-mantri-server/internal/game"
	"raja-mantri-server/internal/room"
	"raja-mantri-server/internal/session"
)

// Server is the connection gateway: it authenticates requests, applies the
// per-origin rate limit and dispatches inbound events to the coordinator.
type Server struct {
	coord    *room.Coordinator
	sessions *session.Registry
	tokens   *auth.Tokens
	out      *broadcast.Dispatcher
	limiter  *originLimiter
	cfg      config.Config
	log      zerolog.Logger
}

func NewServer(coord *room.Coordinator, sessions *session.Registry, tokens *auth.Tokens, out *broadcast.Dispatcher, cfg config.Config, log zerolog.Logger) *Server {
	return &Server{
		coord:    coord,
		sessions: sessions,
		tokens:   tokens,
		out:      out,
		limiter:  newOriginLimiter(cfg.RateLimit, cfg.RateWindow),
		cfg:      cfg,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// Router wires the REST mirror surface and the realtime endpoint.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms", s.listRoomsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.createRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/join", s.joinRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/leave", s.leaveRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/ready", s.readyHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/start", s.startHandler).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.wsHandler)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return handlers.RecoveryHandler()(cors(r))
}

type loginRequest struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// loginHandler hands out guest identities. An existing token is re-verified
// and echoed back instead of minting a new identity.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	if req.Token != "" {
		id, err := s.tokens.Check(req.Token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{UserID: id.String(), Token: req.Token})
		return
	}

	id := uuid.New()
	token, err := s.tokens.Generate(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	if _, err := s.sessions.Resolve(id.String(), req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "session setup failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{UserID: id.String(), Token: token})
}

func (s *Server) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.coord.ListRooms()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "room list unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "rooms": rooms})
}

type createRoomRequest struct {
	UserName string `json:"userName"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Private  bool   `json:"isPrivate"`
}

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	snap, err := s.coord.Create(userID, req.UserName, req.Title, req.Image, req.Private)
	if err != nil {
		s.writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room": snap})
}

type joinRequest struct {
	UserName string `json:"userName"`
}

func (s *Server) joinRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req joinRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	snap, err := s.coord.Join(mux.Vars(r)["code"], userID, req.UserName)
	if err != nil {
		s.writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room": snap})
}

func (s *Server) leaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.coord.Leave(mux.Vars(r)["code"], userID); err != nil {
		s.writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type readyRequest struct {
	IsReady bool `json:"isReady"`
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	snap, err := s.coord.SetReady(mux.Vars(r)["code"], userID, req.IsReady)
	if err != nil {
		s.writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room": snap})
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	snap, err := s.coord.StartGame(mux.Vars(r)["code"], userID)
	if err != nil {
		s.writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room": snap})
}

// authenticate resolves the request's user id from the bearer token or the
// token query parameter.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); token == "" && len(h) > 7 && h[:7] == "Bearer " {
		token = h[7:]
	}
	id, err := s.tokens.Check(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return id.String(), true
}

func (s *Server) writeCoordError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps the coordinator's error taxonomy onto HTTP codes:
// not-found 404, conflict/state 409, authorization 403, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrNotMember):
		return http.StatusNotFound
	case errors.Is(err, room.ErrGameInProgress),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrWrongPlayerCount),
		errors.Is(err, room.ErrPlayersNotReady),
		errors.Is(err, room.ErrNoActiveGame),
		errors.Is(err, room.ErrUnknownAction),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrUnknownPlayer):
		return http.StatusConflict
	case errors.Is(err, room.ErrPrivateRoomDenied),
		errors.Is(err, room.ErrNotHost),
		errors.Is(err, room.ErrUnauthorized),
		errors.Is(err, game.ErrNotSipahi),
		errors.Is(err, game.ErrNotAuthorizedToEndRound):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
