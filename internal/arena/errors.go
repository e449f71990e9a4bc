package arena

import (
	"errors"
	"fmt"
)

// Error classes. Every arena error wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidState = errors.New("invalid_state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation")
	ErrDependency   = errors.New("dependency_failure")
)

type codedError struct {
	code  string
	msg   string
	class error
}

func (e *codedError) Error() string { return e.msg }

func (e *codedError) Unwrap() error { return e.class }

func (e *codedError) Code() string { return e.code }

func coded(code, msg string, class error) error {
	return &codedError{code: code, msg: msg, class: class}
}

var (
	ErrMatchNotFound     = coded("MATCH_NOT_FOUND", "Match not found", ErrNotFound)
	ErrAgentNotFound     = coded("AGENT_NOT_FOUND", "Agent not found", ErrNotFound)
	ErrMatchNotLive      = coded("MATCH_NOT_LIVE", "Match is not live", ErrInvalidState)
	ErrNotParticipant    = coded("NOT_PARTICIPANT", "Only participants can intervene", ErrValidation)
	ErrInvalidAction     = coded("INVALID_ACTION", "Unknown action", ErrValidation)
	ErrInvalidPick       = coded("INVALID_PICK", "Pick must be a or b", ErrValidation)
	ErrInvalidSide       = coded("INVALID_SIDE", "Side must be a or b", ErrValidation)
	ErrInvalidMode       = coded("INVALID_MODE", "Unknown mode", ErrValidation)
	ErrInvalidDay        = coded("INVALID_DAY", "Day must be YYYY-MM-DD", ErrValidation)
	ErrNoOpponent        = coded("NO_OPPONENT", "No available opponent", ErrInvalidState)
	ErrAgentInactive     = coded("AGENT_INACTIVE", "Agent is not active", ErrInvalidState)
	ErrBadVote           = coded("BAD_ARENA_VOTE", "Vote must be fair or unfair", ErrValidation)
	ErrMatchNotResolved  = coded("ARENA_MATCH_NOT_RESOLVED", "Match is not resolved yet", ErrInvalidState)
	ErrAlreadyVoted      = coded("ARENA_MATCH_ALREADY_VOTED", "You already voted on this match", ErrConflict)
	ErrNotLoser          = coded("not_loser", "Only the loser can request a rematch", ErrInvalidState)
	ErrWindowExpired     = coded("window_expired", "Rematch window has expired", ErrInvalidState)
	ErrInsufficientFunds = coded("insufficient_funds", "Not enough coins for the rematch fee", ErrInvalidState)
)

// Code returns the stable machine-readable code carried by err, or "".
func Code(err error) string {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

// dependency marks a failure of a collaborator (ledger, outbox) that aborts
// the surrounding transaction.
func dependency(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}
