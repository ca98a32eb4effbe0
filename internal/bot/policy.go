// Package bot implements the built-in turn player policy for
// computer-controlled seats. Decisions are pure functions of the visible
// session state, the seat's card memory and an injected random source, so
// a seeded policy is fully deterministic under test.
package bot

import (
	rand "math/rand/v2"

	"github.com/lox/cambio/internal/cambio"
	"github.com/lox/cambio/internal/game"
)

// callThreshold is the known-points score at or below which the policy
// calls Cambio once it has seen its whole hand.
const callThreshold = 6

// Policy drives computer seats. It plays honestly: it only reasons about
// card faces its seat has legitimately seen.
type Policy struct {
	rng *rand.Rand
}

// New creates a policy using the given random source.
func New(rng *rand.Rand) *Policy {
	return &Policy{rng: rng}
}

// Decide implements game.Policy.
func (p *Policy) Decide(ctx game.PolicyContext, view *game.Session, seat *game.Seat, trigger *game.Card) (game.Action, bool) {
	switch ctx {
	case game.ContextStartTurn:
		return p.decideTurnStart(view, seat)
	case game.ContextAfterDraw:
		return p.decideAfterDraw(view, seat, trigger)
	case game.ContextAbilityTrigger:
		return p.decideAbility(view, seat)
	case game.ContextAfterTurnInterjectionWindow:
		return p.decideInterjection(view, seat, trigger)
	}
	return game.Action{}, false
}

func (p *Policy) decideTurnStart(view *game.Session, seat *game.Seat) (game.Action, bool) {
	if p.shouldCall(view, seat) {
		return game.Action{Kind: cambio.ActionCallCambio, EndsTurn: true, Actor: seat.ID}, true
	}
	return game.Action{Kind: cambio.ActionDrawStock, Actor: seat.ID}, true
}

// shouldCall is true when the seat knows its entire hand and the known
// total is at or below the call threshold, provided nobody beat it to it.
func (p *Policy) shouldCall(view *game.Session, seat *game.Seat) bool {
	type caller interface{ Caller() string }
	if r, ok := view.Rules().(caller); !ok || r.Caller() != "" {
		return false
	}
	total := 0
	for _, card := range seat.Hand.Cards() {
		if !seat.HasSeen(card.ID) {
			return false
		}
		total += card.Def.Points()
	}
	return total <= callThreshold
}

// decideAfterDraw swaps the drawn card for the worst card the seat knows
// about when that improves the hand, otherwise swaps it for an unseen card
// if the draw is decent, otherwise discards.
func (p *Policy) decideAfterDraw(view *game.Session, seat *game.Seat, drawn *game.Card) (game.Action, bool) {
	if drawn == nil {
		return game.Action{}, false
	}
	worst, worstPoints := p.worstSeen(seat)
	if worst != nil && drawn.Def.Points() < worstPoints {
		return game.Action{Kind: cambio.ActionSwapDrawn, Actor: seat.ID, PrimaryCard: worst.ID}, true
	}
	if unseen := p.unseenCards(seat); len(unseen) > 0 && drawn.Def.Points() <= 4 {
		pick := unseen[p.rng.IntN(len(unseen))]
		return game.Action{Kind: cambio.ActionSwapDrawn, Actor: seat.ID, PrimaryCard: pick.ID}, true
	}
	return game.Action{Kind: cambio.ActionDiscardDrawn, Actor: seat.ID, PrimaryCard: drawn.ID}, true
}

// decideAbility inspects which ability step is currently bound to the seat
// and picks a sensible target for it.
func (p *Policy) decideAbility(view *game.Session, seat *game.Seat) (game.Action, bool) {
	bound := view.Interactions()

	if bound.Bound(seat.ID, cambio.ActionPeekSelf) {
		if unseen := p.unseenCards(seat); len(unseen) > 0 {
			pick := unseen[p.rng.IntN(len(unseen))]
			return game.Action{Kind: cambio.ActionPeekSelf, Actor: seat.ID, PrimaryCard: pick.ID}, true
		}
		return game.Action{Kind: cambio.ActionSkipAbility, Actor: seat.ID}, true
	}

	if bound.Bound(seat.ID, cambio.ActionPeekOther) {
		if pick := p.randomOtherCard(view, seat); pick != nil {
			return game.Action{Kind: cambio.ActionPeekOther, Actor: seat.ID, PrimaryCard: pick.ID}, true
		}
		return game.Action{Kind: cambio.ActionSkipAbility, Actor: seat.ID}, true
	}

	if bound.Bound(seat.ID, cambio.ActionSwapPickOther) {
		if pick := p.randomOtherCard(view, seat); pick != nil {
			return game.Action{Kind: cambio.ActionSwapPickOther, Actor: seat.ID, PrimaryCard: pick.ID}, true
		}
		return game.Action{Kind: cambio.ActionSkipAbility, Actor: seat.ID}, true
	}

	if bound.Bound(seat.ID, cambio.ActionSwapPickMine) {
		// Give away the worst card we know about, or a random unseen one.
		if worst, _ := p.worstSeen(seat); worst != nil {
			return game.Action{Kind: cambio.ActionSwapPickMine, Actor: seat.ID, PrimaryCard: worst.ID}, true
		}
		if unseen := p.unseenCards(seat); len(unseen) > 0 {
			pick := unseen[p.rng.IntN(len(unseen))]
			return game.Action{Kind: cambio.ActionSwapPickMine, Actor: seat.ID, PrimaryCard: pick.ID}, true
		}
		return game.Action{Kind: cambio.ActionSkipAbility, Actor: seat.ID}, true
	}

	return game.Action{Kind: cambio.ActionSkipAbility, Actor: seat.ID}, true
}

// decideInterjection stacks the first card the seat remembers that matches
// the pile top's rank, own cards first. It declines when it knows nothing
// matching: guessing risks a penalty card.
func (p *Policy) decideInterjection(view *game.Session, seat *game.Seat, top *game.Card) (game.Action, bool) {
	if top == nil {
		return game.Action{}, false
	}
	for _, card := range seat.Hand.Cards() {
		if seat.HasSeen(card.ID) && card.Def.Rank == top.Def.Rank {
			return game.Action{Kind: game.ActionStack, Actor: seat.ID, PrimaryCard: card.ID}, true
		}
	}
	for _, other := range view.ActiveSeats() {
		if other.ID == seat.ID {
			continue
		}
		for _, card := range other.Hand.Cards() {
			if seat.HasSeen(card.ID) && card.Def.Rank == top.Def.Rank {
				return game.Action{Kind: game.ActionStack, Actor: seat.ID, PrimaryCard: card.ID}, true
			}
		}
	}
	return game.Action{}, false
}

// worstSeen returns the highest-point card the seat has seen in its own
// hand.
func (p *Policy) worstSeen(seat *game.Seat) (*game.Card, int) {
	var worst *game.Card
	points := 0
	for _, card := range seat.Hand.Cards() {
		if !seat.HasSeen(card.ID) {
			continue
		}
		if worst == nil || card.Def.Points() > points {
			worst = card
			points = card.Def.Points()
		}
	}
	return worst, points
}

// unseenCards returns the seat's own cards it has never peeked.
func (p *Policy) unseenCards(seat *game.Seat) []*game.Card {
	var out []*game.Card
	for _, card := range seat.Hand.Cards() {
		if !seat.HasSeen(card.ID) {
			out = append(out, card)
		}
	}
	return out
}

// randomOtherCard picks a uniformly random card from the other active
// seats' hands.
func (p *Policy) randomOtherCard(view *game.Session, seat *game.Seat) *game.Card {
	var candidates []*game.Card
	for _, other := range view.ActiveSeats() {
		if other.ID == seat.ID {
			continue
		}
		candidates = append(candidates, other.Hand.Cards()...)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[p.rng.IntN(len(candidates))]
}
