package game

import (
	"fmt"
	"time"
)

// interjectionWindow tracks the out-of-turn stacking sub-phase that runs
// between turns. The claimed flag serializes simultaneous attempts: the
// whole attempt executes inside one authority step, so check-and-set is
// race-free and the first request in arrival order wins.
type interjectionWindow struct {
	open    bool
	claimed bool
	gen     int
}

func (w *interjectionWindow) reset() {
	w.open = false
	w.claimed = false
	w.gen++
}

// pendingGive records a won interjection on another seat's card: the winner
// must pick one of its own cards to hand over before the window closes.
type pendingGive struct {
	from string
	to   string
}

// openInterjectionWindow arms stack gates on every held card for every
// active seat, finished seats included, and schedules the close. The next
// turn begins when the window closes.
func (s *Session) openInterjectionWindow(d time.Duration) {
	s.window.gen++
	gen := s.window.gen
	s.window.open = true
	s.window.claimed = false

	allSeats := make([]string, 0, len(s.active))
	var cards []*Card
	for _, seat := range s.active {
		allSeats = append(allSeats, seat.ID)
		cards = append(cards, seat.Hand.Cards()...)
	}
	s.interact.Bind(cards, allSeats, Action{Kind: ActionStack}, "stack", true)
	s.logger.Debug("Interjection window open", "cards", len(cards), "duration", d)

	for _, seat := range s.active {
		if seat.IsComputerControlled {
			s.ConsultPolicy(ContextAfterTurnInterjectionWindow, seat, s.PileTop())
		}
	}

	s.afterDelay(d, func() {
		if s.window.gen == gen {
			s.closeInterjectionWindow()
		}
	})
}

// closeInterjectionWindow forcibly clears every gate, including a pending
// give-card selection, and begins the scheduled turn. Idempotent.
func (s *Session) closeInterjectionWindow() {
	if !s.window.open {
		return
	}
	s.window.open = false
	s.window.claimed = false
	s.give = nil
	s.interact.ResetAll(s.seats)
	s.beginTurn()
}

// handleStack resolves an out-of-turn stacking attempt. A correct match
// moves the card onto the pile; stacking another seat's card additionally
// requires the winner to give one of its own cards to the victim. An
// incorrect match returns the card to its holder's hand at its original
// slot, and costs the attempter a replacement card when the card was its
// own. Failure releases the claim so the window continues.
func (s *Session) handleStack(act Action, actor *Seat) error {
	if !s.window.open {
		return fmt.Errorf("%w: no interjection window open", ErrNotAllowed)
	}
	if s.window.claimed {
		return fmt.Errorf("%w: interjection already claimed", ErrNotAllowed)
	}
	s.window.claimed = true

	card, ok := s.pool.Get(act.PrimaryCard)
	if !ok || card.Loc.Kind != LocInHand {
		s.window.claimed = false
		return fmt.Errorf("%w: card %d not in any hand", ErrInvalidTransfer, act.PrimaryCard)
	}
	holder := s.SeatByID(card.Loc.Seat)
	top := s.PileTop()

	removed, slot, err := s.RemoveFromHand(holder, card.ID)
	if err != nil {
		s.window.claimed = false
		return err
	}

	if s.rules.StackMatches(top, removed) {
		if err := s.PlaceOnPile(removed); err != nil {
			s.window.claimed = false
			return err
		}
		s.logger.Info("Interjection succeeded", "actor", actor.ID, "holder", holder.ID, "card", removed.ID)
		s.publish(InterjectionEvent{Actor: actor.ID, Victim: holder.ID, Card: removed.ID, Correct: true, timestamp: s.clock.Now()})
		s.publish(ActionExecutedEvent{Action: act, timestamp: s.clock.Now()})

		if holder != actor && actor.Hand.Len() > 0 {
			s.give = &pendingGive{from: actor.ID, to: holder.ID}
			s.interact.ResetAll(s.seats)
			s.interact.Bind(actor.Hand.Cards(), []string{actor.ID},
				Action{Kind: ActionGiveCard, TargetSeat: holder.ID}, "give", true)
			return nil
		}
		s.closeInterjectionWindow()
		return nil
	}

	// Wrong match: the round trip restores the holder's hand exactly, and
	// everyone gets to see the card that was mis-stacked. The reveal comes
	// after the move, which turns cards face down as they enter a hand.
	if err := s.MoveToHand(removed, holder, slot); err != nil {
		s.window.claimed = false
		return err
	}
	s.RevealToAll(removed)
	if holder == actor {
		if penalty, err := s.DrawFromStock(Position{}); err != nil {
			s.logger.Warn("Penalty draw failed", "actor", actor.ID, "error", err)
		} else if err := s.MoveToHand(penalty, actor, actor.Hand.Len()); err != nil {
			s.logger.Error("Penalty transfer failed", "actor", actor.ID, "error", err)
		}
	}
	s.logger.Info("Interjection failed", "actor", actor.ID, "holder", holder.ID, "card", removed.ID)
	s.publish(InterjectionEvent{Actor: actor.ID, Victim: holder.ID, Card: removed.ID, Correct: false, timestamp: s.clock.Now()})
	s.window.claimed = false
	return nil
}

// handleGive completes a won interjection by transferring one of the
// winner's cards to the seat whose card was stacked, then closes the
// window.
func (s *Session) handleGive(act Action, actor *Seat) error {
	if s.give == nil || s.give.from != actor.ID {
		return fmt.Errorf("%w: no give pending for seat %s", ErrNotAllowed, actor.ID)
	}
	target := s.SeatByID(s.give.to)
	if target == nil {
		return fmt.Errorf("%w: unknown give target %s", ErrBadState, s.give.to)
	}
	if err := s.GiveCard(actor, target, act.PrimaryCard); err != nil {
		return err
	}
	s.logger.Info("Interjection give completed", "from", actor.ID, "to", target.ID, "card", act.PrimaryCard)
	s.publish(ActionExecutedEvent{Action: act, timestamp: s.clock.Now()})
	s.give = nil
	s.closeInterjectionWindow()
	return nil
}
