// Package cambio implements the Cambio card game as a rule module for the
// generic session engine: draw-or-call turns, rank-matching interjections,
// discard abilities, and lowest-points-wins scoring.
package cambio

import (
	"fmt"
	"time"

	"github.com/lox/cambio/internal/deck"
	"github.com/lox/cambio/internal/game"
)

// Action kinds supplied by the Cambio rule module. The engine owns stack
// and give_card; everything else is dispatched here.
const (
	ActionDrawStock     game.ActionKind = "draw_stock"
	ActionDiscardDrawn  game.ActionKind = "discard_drawn"
	ActionSwapDrawn     game.ActionKind = "swap_drawn"
	ActionCallCambio    game.ActionKind = "call_cambio"
	ActionPeekSelf      game.ActionKind = "peek_self"
	ActionPeekOther     game.ActionKind = "peek_other"
	ActionSwapPickOther game.ActionKind = "swap_pick_other"
	ActionSwapPickMine  game.ActionKind = "swap_pick_mine"
	ActionSkipAbility   game.ActionKind = "skip_ability"
)

const (
	// HandSize is the number of cards dealt to each seat.
	HandSize = 4

	// InitialPeekCount is how many of its own cards a seat sees at deal time.
	InitialPeekCount = 2

	defaultWindow = 2500 * time.Millisecond
)

// Rules is the Cambio rule module. Per-game state (the Cambio caller, a
// pending ability sequence) lives here and is reset on every deal; it is
// only touched from pipeline callbacks, which run on the authority loop.
type Rules struct {
	window time.Duration

	caller  string
	pending *pendingAbility
}

// Option configures the rule module.
type Option func(*Rules)

// WithInterjectionWindow overrides the out-of-turn stacking window.
func WithInterjectionWindow(d time.Duration) Option {
	return func(r *Rules) { r.window = d }
}

// New creates the Cambio rule module.
func New(opts ...Option) *Rules {
	r := &Rules{window: defaultWindow}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements game.RuleModule.
func (r *Rules) Name() string { return "cambio" }

// IsTurnExclusive implements game.RuleModule. Cambio turns are exclusive;
// only the interjection sub-phase admits out-of-turn play.
func (r *Rules) IsTurnExclusive() bool { return true }

// InterjectionWindow implements game.RuleModule.
func (r *Rules) InterjectionWindow() time.Duration { return r.window }

// DealInitialCards deals four cards around the table, then lets every seat
// peek its first two.
func (r *Rules) DealInitialCards(s *game.Session) {
	r.caller = ""
	r.pending = nil
	s.DealRoundRobin(HandSize, func() {
		for _, seat := range s.ActiveSeats() {
			for i := 0; i < InitialPeekCount && i < seat.Hand.Len(); i++ {
				card, _ := seat.Hand.CardAt(i)
				s.RevealTo(card, seat)
			}
		}
	})
}

// OpenTurnGates enables the owner's start-of-turn affordances: the deck
// gate to draw, and the seat marker to call Cambio while nobody has yet.
func (r *Rules) OpenTurnGates(s *game.Session, seat *game.Seat) {
	owner := []string{seat.ID}
	s.Interactions().BindGate(s.DeckGate(), owner,
		game.Action{Kind: ActionDrawStock}, "draw", true)
	if r.caller == "" {
		s.Interactions().BindGate(seat.MarkerGate(), owner,
			game.Action{Kind: ActionCallCambio, EndsTurn: true}, "call cambio", true)
	}
}

// HandleAction implements game.RuleModule. Handlers validate before
// mutating so an error return leaves state unchanged.
func (r *Rules) HandleAction(s *game.Session, act game.Action) error {
	actor := s.SeatByID(act.Actor)
	if actor == nil {
		return fmt.Errorf("%w: unknown seat %s", game.ErrNotAllowed, act.Actor)
	}

	switch act.Kind {
	case ActionDrawStock:
		return r.handleDraw(s, actor)
	case ActionDiscardDrawn:
		return r.handleDiscard(s, actor, act)
	case ActionSwapDrawn:
		return r.handleSwapDrawn(s, actor, act)
	case ActionCallCambio:
		return r.handleCall(s, actor)
	case ActionPeekSelf, ActionPeekOther, ActionSwapPickOther, ActionSwapPickMine, ActionSkipAbility:
		return r.handleAbility(s, actor, act)
	default:
		return fmt.Errorf("%w: unknown action kind %q", game.ErrNotAllowed, act.Kind)
	}
}

func (r *Rules) handleDraw(s *game.Session, actor *game.Seat) error {
	if s.DrawnCard() != nil {
		return fmt.Errorf("%w: already drew this turn", game.ErrBadState)
	}
	r.pending = nil

	card, err := s.DrawFromStock(game.Position{})
	if err != nil {
		// Supply is gone; the turn must still end rather than stall.
		s.Logger().Warn("Draw failed, skipping turn", "seat", actor.ID, "error", err)
		r.maybeFinish(actor)
		s.EndTurn()
		return nil
	}
	s.SetDrawnCard(card)
	s.RevealTo(card, actor)

	// The drawn card's own gate discards it; each held card's gate swaps
	// the drawn card in at that slot.
	s.Interactions().Bind([]*game.Card{card}, []string{actor.ID},
		game.Action{Kind: ActionDiscardDrawn, PrimaryCard: card.ID}, "discard", true)
	s.Interactions().Bind(actor.Hand.Cards(), []string{actor.ID},
		game.Action{Kind: ActionSwapDrawn}, "swap", true)

	if actor.IsComputerControlled {
		s.ConsultPolicy(game.ContextAfterDraw, actor, card)
	}
	return nil
}

func (r *Rules) handleDiscard(s *game.Session, actor *game.Seat, act game.Action) error {
	drawn := s.DrawnCard()
	if drawn == nil || act.PrimaryCard != drawn.ID {
		return fmt.Errorf("%w: no drawn card %d to discard", game.ErrBadState, act.PrimaryCard)
	}
	if err := s.PlaceOnPile(drawn); err != nil {
		return err
	}
	s.SetDrawnCard(nil)

	if r.ResolveAbility(s, drawn, actor) {
		return nil
	}
	r.maybeFinish(actor)
	s.EndTurn()
	return nil
}

// handleSwapDrawn exchanges the drawn card for a held card at its slot and
// discards the held card. The replaced card triggers no ability.
func (r *Rules) handleSwapDrawn(s *game.Session, actor *game.Seat, act game.Action) error {
	drawn := s.DrawnCard()
	if drawn == nil {
		return fmt.Errorf("%w: nothing drawn to swap", game.ErrBadState)
	}
	old, slot, err := s.RemoveFromHand(actor, act.PrimaryCard)
	if err != nil {
		return err
	}
	if err := s.MoveToHand(drawn, actor, slot); err != nil {
		// Put the removed card back; the swap must be all or nothing.
		_ = s.MoveToHand(old, actor, slot)
		return err
	}
	s.SetDrawnCard(nil)
	actor.MarkSeen(drawn.ID)
	if err := s.PlaceOnPile(old); err != nil {
		return err
	}
	r.maybeFinish(actor)
	s.EndTurn()
	return nil
}

// handleCall locks the caller's hand for the rest of the game. Every other
// seat gets one final turn; the action's EndsTurn tag hands play onward.
func (r *Rules) handleCall(s *game.Session, actor *game.Seat) error {
	if r.caller != "" {
		return fmt.Errorf("%w: cambio already called by %s", game.ErrNotAllowed, r.caller)
	}
	if s.DrawnCard() != nil {
		return fmt.Errorf("%w: cannot call after drawing", game.ErrBadState)
	}
	r.caller = actor.ID
	actor.HasFinished = true
	s.Logger().Info("Cambio called", "seat", actor.ID)
	return nil
}

// maybeFinish marks a seat finished at the end of its final turn once
// Cambio has been called.
func (r *Rules) maybeFinish(actor *game.Seat) {
	if r.caller != "" && actor.ID != r.caller {
		actor.HasFinished = true
	}
}

// HasGameEnded reports game over once every active seat has finished.
func (r *Rules) HasGameEnded(seats []*game.Seat) bool {
	if len(seats) == 0 {
		return false
	}
	for _, seat := range seats {
		if !seat.HasFinished {
			return false
		}
	}
	return true
}

// ComputeScore sums the point values of a seat's remaining cards.
func (r *Rules) ComputeScore(seat *game.Seat) int {
	total := 0
	for _, card := range seat.Hand.Cards() {
		total += card.Def.Points()
	}
	return total
}

// StackMatches reports whether candidate shares the pile top's rank.
func (r *Rules) StackMatches(top, candidate *game.Card) bool {
	if top == nil || candidate == nil {
		return false
	}
	return top.Def.Rank == candidate.Def.Rank
}

// Caller returns the seat that called Cambio, empty if nobody has.
func (r *Rules) Caller() string { return r.caller }

// AbilityFor returns the ability a discarded rank triggers, or AbilityNone.
func AbilityFor(rank deck.Rank) Ability {
	switch rank {
	case deck.Seven, deck.Eight:
		return AbilityPeekSelf
	case deck.Nine, deck.Ten:
		return AbilityPeekOther
	case deck.Jack, deck.Queen:
		return AbilityBlindSwap
	case deck.King:
		return AbilityPeekSwap
	default:
		return AbilityNone
	}
}
