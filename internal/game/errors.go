package game

import "errors"

// Engine error taxonomy. All of these are recovered at the point of
// detection: they decline a request or skip an operation, and never unwind
// past the action pipeline.
var (
	// ErrOutOfTurn rejects an action whose actor is not the currently
	// authorized seat while the rule module is turn-exclusive.
	ErrOutOfTurn = errors.New("action out of turn")

	// ErrNotAllowed rejects a gate trigger from a seat outside the gate's
	// allowed set, or on a disabled gate.
	ErrNotAllowed = errors.New("gate trigger not allowed")

	// ErrPoolExhausted indicates no pooled card entity (or no undealt
	// definition) was available for a draw.
	ErrPoolExhausted = errors.New("card pool exhausted")

	// ErrNotActive indicates a release of a card that was never leased.
	ErrNotActive = errors.New("card not active")

	// ErrInvalidTransfer indicates a hand/pile move on a card that is not at
	// the expected location. The move is rejected and state is unchanged.
	ErrInvalidTransfer = errors.New("invalid card transfer")

	// ErrBadState rejects a request that is not valid in the session's
	// current lifecycle state.
	ErrBadState = errors.New("invalid session state for request")
)
