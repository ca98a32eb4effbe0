package cambio

import (
	"fmt"

	"github.com/lox/cambio/internal/game"
)

// Ability names the follow-up a discarded card grants its discarder.
type Ability int

const (
	AbilityNone Ability = iota

	// AbilityPeekSelf (7, 8): look at one of your own cards.
	AbilityPeekSelf

	// AbilityPeekOther (9, 10): look at one card in another seat's hand.
	AbilityPeekOther

	// AbilityBlindSwap (J, Q): exchange one of your cards with another
	// seat's, faces hidden from everyone.
	AbilityBlindSwap

	// AbilityPeekSwap (K): look at another seat's card, then optionally
	// exchange it with one of yours.
	AbilityPeekSwap
)

// String returns the string representation of an ability
func (a Ability) String() string {
	switch a {
	case AbilityPeekSelf:
		return "peek_self"
	case AbilityPeekOther:
		return "peek_other"
	case AbilityBlindSwap:
		return "blind_swap"
	case AbilityPeekSwap:
		return "peek_swap"
	default:
		return "none"
	}
}

// pendingAbility is a multi-step ability sequence in flight. otherCard is
// the card picked from another seat's hand in the first step of a swap.
type pendingAbility struct {
	ability   Ability
	actor     string
	otherCard game.CardID
}

// ResolveAbility opens the gates for the discarded card's ability, if any.
// Every ability can be skipped via the actor's seat marker. Returns true
// when a sequence was opened and the turn must not end yet.
func (r *Rules) ResolveAbility(s *game.Session, pileTop *game.Card, acting *game.Seat) bool {
	ability := AbilityFor(pileTop.Def.Rank)
	if ability == AbilityNone {
		return false
	}
	r.pending = &pendingAbility{ability: ability, actor: acting.ID}
	s.Logger().Debug("Ability triggered", "seat", acting.ID, "ability", ability)

	owner := []string{acting.ID}
	switch ability {
	case AbilityPeekSelf:
		s.Interactions().Bind(acting.Hand.Cards(), owner,
			game.Action{Kind: ActionPeekSelf}, "peek", true)
	case AbilityPeekOther:
		s.Interactions().Bind(r.otherHandCards(s, acting), owner,
			game.Action{Kind: ActionPeekOther}, "peek", true)
	case AbilityBlindSwap, AbilityPeekSwap:
		s.Interactions().Bind(r.otherHandCards(s, acting), owner,
			game.Action{Kind: ActionSwapPickOther}, "pick theirs", true)
	}
	s.Interactions().BindGate(acting.MarkerGate(), owner,
		game.Action{Kind: ActionSkipAbility}, "skip", true)

	if acting.IsComputerControlled {
		s.ConsultPolicy(game.ContextAbilityTrigger, acting, pileTop)
	}
	return true
}

// handleAbility dispatches the ability-sequence action kinds.
func (r *Rules) handleAbility(s *game.Session, actor *game.Seat, act game.Action) error {
	p := r.pending
	if p == nil || p.actor != actor.ID {
		return fmt.Errorf("%w: no ability pending for seat %s", game.ErrNotAllowed, actor.ID)
	}

	switch act.Kind {
	case ActionSkipAbility:
		return r.finishAbility(s, actor)

	case ActionPeekSelf:
		if p.ability != AbilityPeekSelf {
			return fmt.Errorf("%w: wrong ability step", game.ErrNotAllowed)
		}
		card, ok := s.Pool().Get(act.PrimaryCard)
		if !ok || !actor.Hand.Contains(card.ID) {
			return fmt.Errorf("%w: card %d not in own hand", game.ErrInvalidTransfer, act.PrimaryCard)
		}
		s.RevealTo(card, actor)
		return r.finishAbility(s, actor)

	case ActionPeekOther:
		if p.ability != AbilityPeekOther {
			return fmt.Errorf("%w: wrong ability step", game.ErrNotAllowed)
		}
		card, holder, err := r.otherHeldCard(s, actor, act.PrimaryCard)
		if err != nil {
			return err
		}
		s.Logger().Debug("Peeked card", "seat", actor.ID, "holder", holder.ID, "card", card.ID)
		s.RevealTo(card, actor)
		return r.finishAbility(s, actor)

	case ActionSwapPickOther:
		if p.ability != AbilityBlindSwap && p.ability != AbilityPeekSwap {
			return fmt.Errorf("%w: wrong ability step", game.ErrNotAllowed)
		}
		card, _, err := r.otherHeldCard(s, actor, act.PrimaryCard)
		if err != nil {
			return err
		}
		if p.ability == AbilityPeekSwap {
			s.RevealTo(card, actor)
		}
		p.otherCard = card.ID

		// Second step: pick one of your own to exchange, or skip.
		owner := []string{actor.ID}
		s.Interactions().Bind(actor.Hand.Cards(), owner,
			game.Action{Kind: ActionSwapPickMine}, "pick mine", true)
		s.Interactions().BindGate(actor.MarkerGate(), owner,
			game.Action{Kind: ActionSkipAbility}, "skip", true)
		if actor.IsComputerControlled {
			s.ConsultPolicy(game.ContextAbilityTrigger, actor, card)
		}
		return nil

	case ActionSwapPickMine:
		if p.otherCard == 0 {
			return fmt.Errorf("%w: no card picked to swap with", game.ErrBadState)
		}
		theirs, holder, err := r.otherHeldCard(s, actor, p.otherCard)
		if err != nil {
			return err
		}
		if !actor.Hand.Contains(act.PrimaryCard) {
			return fmt.Errorf("%w: card %d not in own hand", game.ErrInvalidTransfer, act.PrimaryCard)
		}
		if err := r.swapHeld(s, actor, act.PrimaryCard, holder, theirs.ID); err != nil {
			return err
		}
		if p.ability == AbilityPeekSwap {
			// The swap's memory prune erased the peek; the actor still
			// knows the face of the card it now holds.
			actor.MarkSeen(theirs.ID)
		}
		return r.finishAbility(s, actor)
	}
	return fmt.Errorf("%w: unknown ability action %q", game.ErrNotAllowed, act.Kind)
}

// swapHeld exchanges two held cards, each landing in the other's slot.
func (r *Rules) swapHeld(s *game.Session, a *game.Seat, aCard game.CardID, b *game.Seat, bCard game.CardID) error {
	mine, mySlot, err := s.RemoveFromHand(a, aCard)
	if err != nil {
		return err
	}
	theirs, theirSlot, err := s.RemoveFromHand(b, bCard)
	if err != nil {
		_ = s.MoveToHand(mine, a, mySlot)
		return err
	}
	if err := s.MoveToHand(theirs, a, mySlot); err != nil {
		return err
	}
	if err := s.MoveToHand(mine, b, theirSlot); err != nil {
		return err
	}
	s.Logger().Debug("Swapped held cards", "seat", a.ID, "with", b.ID)
	return nil
}

func (r *Rules) finishAbility(s *game.Session, actor *game.Seat) error {
	r.pending = nil
	r.maybeFinish(actor)
	s.EndTurn()
	return nil
}

// otherHandCards returns every card held by active seats other than actor.
func (r *Rules) otherHandCards(s *game.Session, actor *game.Seat) []*game.Card {
	var cards []*game.Card
	for _, seat := range s.ActiveSeats() {
		if seat.ID == actor.ID {
			continue
		}
		cards = append(cards, seat.Hand.Cards()...)
	}
	return cards
}

// otherHeldCard resolves a card id to a card held by a seat other than
// actor, returning the card and its holder.
func (r *Rules) otherHeldCard(s *game.Session, actor *game.Seat, id game.CardID) (*game.Card, *game.Seat, error) {
	card, ok := s.Pool().Get(id)
	if !ok || card.Loc.Kind != game.LocInHand {
		return nil, nil, fmt.Errorf("%w: card %d not in a hand", game.ErrInvalidTransfer, id)
	}
	if card.Loc.Seat == actor.ID {
		return nil, nil, fmt.Errorf("%w: card %d is your own", game.ErrInvalidTransfer, id)
	}
	holder := s.SeatByID(card.Loc.Seat)
	if holder == nil {
		return nil, nil, fmt.Errorf("%w: holder %s unknown", game.ErrBadState, card.Loc.Seat)
	}
	return card, holder, nil
}
