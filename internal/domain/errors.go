package domain

import "errors"

// Validation errors: the request referenced something that does not exist.
var (
	ErrUnknownMode   = errors.New("unknown mode")
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrUnknownMap    = errors.New("unknown map")
	ErrUnknownPlayer = errors.New("unknown player")
)

// Precondition errors: the request was well-formed but arrived in a state
// that does not admit it.
var (
	ErrAlreadyInLobby = errors.New("player already in a lobby")
	ErrSlotFull       = errors.New("lobby slot is full")
	ErrNotInLobby     = errors.New("player not in this lobby")
	ErrNotInMatch     = errors.New("player not in this match")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrPlayerBanned   = errors.New("player is banned from matchmaking")
	ErrWrongPhase     = errors.New("action not valid in current phase")
)

// ErrMatchNotFound covers pending and active lookups alike; settled and
// cancelled matches drop their coordination record and report this too.
var ErrMatchNotFound = errors.New("match not found")
