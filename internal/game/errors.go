package game

import "errors"

var (
	ErrNotSipahi               = errors.New("only the sipahi may guess")
	ErrNotAuthorizedToEndRound = errors.New("only the host or the raja may end the round")
	ErrWrongPhase              = errors.New("action not valid in the current phase")
	ErrWrongPlayerCount        = errors.New("the game needs exactly four players")
	ErrUnknownPlayer           = errors.New("player is not part of this game")
)
