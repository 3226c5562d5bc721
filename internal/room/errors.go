package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrGameInProgress    = errors.New("game already in progress")
	ErrRoomFull          = errors.New("room is full")
	ErrPrivateRoomDenied = errors.New("room is private")
	ErrUnauthorized      = errors.New("not authorized to act for this user")
	ErrNotHost           = errors.New("only the host may do that")
	ErrWrongPlayerCount  = errors.New("room needs exactly four players")
	ErrPlayersNotReady   = errors.New("all players must be ready")
	ErrNotMember         = errors.New("user is not a member of this room")
	ErrNoActiveGame      = errors.New("no game is running in this room")
	ErrUnknownAction     = errors.New("unknown game action")
)
