package game

import "time"

// RuleModule supplies the game-specific vocabulary, scoring and ability
// resolution plugged into the generic turn engine. Implementations mutate
// session state only through the Session helpers and only from within
// pipeline callbacks, which all run on the authority loop.
type RuleModule interface {
	// Name identifies the rule set in logs and the wire protocol.
	Name() string

	// DealInitialCards deals every active seat its opening hand, typically
	// via Session.DealRoundRobin.
	DealInitialCards(s *Session)

	// OpenTurnGates enables the turn owner's start-of-turn affordances
	// (the implicit draw, a locking call, ...).
	OpenTurnGates(s *Session, seat *Seat)

	// HandleAction executes a rule-specific action kind. The handler must
	// validate before mutating: an error return means state is unchanged.
	HandleAction(s *Session, act Action) error

	// ResolveAbility gives the rule module a chance to open follow-up gates
	// after a card lands on the pile. It returns true when an ability
	// sequence was opened and the turn must not end yet.
	ResolveAbility(s *Session, pileTop *Card, acting *Seat) bool

	// HasGameEnded reports whether play is over given the current seats.
	HasGameEnded(seats []*Seat) bool

	// ComputeScore returns a seat's final score.
	ComputeScore(seat *Seat) int

	// IsTurnExclusive reports whether actions outside the owner's turn are
	// rejected with ErrOutOfTurn.
	IsTurnExclusive() bool

	// InterjectionWindow returns the fixed duration of the out-of-turn
	// stacking window between turns, or zero to disable it.
	InterjectionWindow() time.Duration

	// StackMatches reports whether candidate may legally be stacked onto
	// the current pile top.
	StackMatches(top, candidate *Card) bool
}

// PolicyContext names the decision points at which a computer-controlled
// seat is consulted.
type PolicyContext int

const (
	ContextStartTurn PolicyContext = iota
	ContextAfterDraw
	ContextAbilityTrigger
	ContextAfterTurnInterjectionWindow
)

// String returns the string representation of a policy context
func (c PolicyContext) String() string {
	switch c {
	case ContextStartTurn:
		return "start_turn"
	case ContextAfterDraw:
		return "after_draw"
	case ContextAbilityTrigger:
		return "ability_trigger"
	case ContextAfterTurnInterjectionWindow:
		return "after_turn_interjection_window"
	default:
		return "?"
	}
}

// Policy is the decision function for computer-controlled seats. It must be
// a pure function of its inputs plus the policy's injected random source:
// it never mutates session state, only returns an action for the engine to
// execute through the same pipeline a human request would use. The bool
// result is false when the policy declines to act (e.g. no interjection).
type Policy interface {
	Decide(ctx PolicyContext, view *Session, seat *Seat, trigger *Card) (Action, bool)
}
