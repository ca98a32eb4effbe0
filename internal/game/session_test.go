package game

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lox/cambio/internal/deck"
)

// stubRules is a minimal rule module: one "advance" action that ends the
// turn, no abilities, game over when every seat has finished.
type stubRules struct {
	window  time.Duration
	deal    int
	stackOK func(top, candidate *Card) bool
}

func (r *stubRules) Name() string { return "stub" }

func (r *stubRules) DealInitialCards(s *Session) {
	s.DealRoundRobin(r.deal, nil)
}

func (r *stubRules) OpenTurnGates(s *Session, seat *Seat) {
	s.Interactions().BindGate(s.DeckGate(), []string{seat.ID},
		Action{Kind: "advance", EndsTurn: true}, "advance", true)
}

func (r *stubRules) HandleAction(s *Session, act Action) error {
	switch act.Kind {
	case "advance":
		return nil
	case "play":
		card, err := s.DrawFromStock(Position{})
		if err != nil {
			return err
		}
		return s.PlaceOnPile(card)
	case "boom":
		return ErrBadState
	}
	return fmt.Errorf("%w: %s", ErrNotAllowed, act.Kind)
}

func (r *stubRules) ResolveAbility(s *Session, pileTop *Card, acting *Seat) bool { return false }

func (r *stubRules) HasGameEnded(seats []*Seat) bool {
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

func (r *stubRules) ComputeScore(seat *Seat) int {
	total := 0
	for _, card := range seat.Hand.Cards() {
		total += card.Def.Points()
	}
	return total
}

func (r *stubRules) IsTurnExclusive() bool             { return true }
func (r *stubRules) InterjectionWindow() time.Duration { return r.window }
func (r *stubRules) StackMatches(top, candidate *Card) bool {
	if r.stackOK != nil {
		return r.stackOK(top, candidate)
	}
	return top != nil && candidate != nil && top.Def.Rank == candidate.Def.Rank
}

// eventCollector records published events; the bus is synchronous so no
// locking is needed in single-goroutine tests.
type eventCollector struct {
	events []GameEvent
}

func (c *eventCollector) OnEvent(event GameEvent) {
	c.events = append(c.events, event)
}

func (c *eventCollector) last(eventType EventType) GameEvent {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].EventType() == eventType {
			return c.events[i]
		}
	}
	return nil
}

func newTestSession(t *testing.T, seats int, rules RuleModule, opts ...Option) *Session {
	t.Helper()
	return NewSession(testLogger(), Config{SeatCount: seats, Seed: 42}, rules, nil, opts...)
}

// drain runs queued authority steps until none remain. Tests drive the
// engine synchronously instead of running the loop goroutine.
func drain(s *Session) {
	for {
		select {
		case fn := <-s.loop.calls:
			fn()
		default:
			return
		}
	}
}

func bindSeats(s *Session, n int) {
	for i := 0; i < n; i++ {
		ep := fmt.Sprintf("ep_%d", i)
		s.seats[i].Bind(ep)
		if s.hostEndpoint == "" {
			s.hostEndpoint = ep
		}
	}
}

func startGame(t *testing.T, s *Session) {
	t.Helper()
	s.beginStarting()
	drain(s)
	if s.state != Playing {
		t.Fatalf("Expected Playing after dealing, got %v", s.state)
	}
}

func TestSessionDealsRoundRobin(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 4, &stubRules{deal: 4})
	bindSeats(s, 4)
	startGame(t, s)

	for _, seat := range s.active {
		if seat.Hand.Len() != 4 {
			t.Errorf("Seat %s has %d cards, expected 4", seat.ID, seat.Hand.Len())
		}
		for _, card := range seat.Hand.Cards() {
			if card.Loc.Kind != LocInHand || card.Loc.Seat != seat.ID {
				t.Errorf("Card %d location wrong: %+v", card.ID, card.Loc)
			}
		}
	}
	if s.StockSize() != deck.Size-16 {
		t.Errorf("Expected %d undealt definitions, got %d", deck.Size-16, s.StockSize())
	}
	if s.pool.Available()+s.pool.Active() != s.pool.Total() {
		t.Error("Pool invariant broken after dealing")
	}
	if s.turnOwner != s.active[0].ID {
		t.Errorf("First turn should go to the first active seat, got %s", s.turnOwner)
	}
}

func TestSessionComputerFill(t *testing.T) {
	t.Parallel()
	s := NewSession(testLogger(), Config{SeatCount: 3, Seed: 42, ComputerFill: true}, &stubRules{deal: 1}, nil)
	s.seats[0].Bind("ep_0")
	s.hostEndpoint = "ep_0"
	startGame(t, s)

	if len(s.active) != 3 {
		t.Fatalf("Computer fill should seat everyone, got %d active", len(s.active))
	}
	if !s.seats[1].IsComputerControlled || !s.seats[2].IsComputerControlled {
		t.Error("Unbound seats should be computer controlled")
	}
	if s.seats[0].IsComputerControlled {
		t.Error("Bound seat must not be computer controlled")
	}
}

func TestSessionTurnRotation(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 3, &stubRules{deal: 1})
	bindSeats(s, 3)
	startGame(t, s)

	first := s.turnOwner
	if err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: first}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.turnOwner != s.active[1].ID {
		t.Errorf("Expected turn to pass to second seat, got %s", s.turnOwner)
	}
	if s.SeatByID(first).IsTurnActive {
		t.Error("Previous owner should no longer be turn active")
	}
	if !s.SeatByID(s.turnOwner).IsTurnActive {
		t.Error("New owner should be turn active")
	}
}

func TestSessionRejectsOutOfTurn(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	intruder := s.active[1].ID
	err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: intruder})
	if !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("Expected ErrOutOfTurn, got %v", err)
	}
	if s.turnOwner != s.active[0].ID {
		t.Error("A declined action must not change the turn")
	}
	if !s.deckGate.Allows(s.active[0].ID) {
		t.Error("A declined action must leave the owner's gates standing")
	}
}

func TestSessionRejectsUnknownActor(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	err := s.executeAction(Action{Kind: "advance", Actor: "seat_nobody"})
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("Expected ErrNotAllowed, got %v", err)
	}
}

func TestSessionSkipsFinishedSeats(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 3, &stubRules{deal: 1})
	bindSeats(s, 3)
	startGame(t, s)

	s.active[1].HasFinished = true
	if err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: s.active[0].ID}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.turnOwner != s.active[2].ID {
		t.Errorf("Scheduler should skip the finished seat, got %s", s.turnOwner)
	}
}

func TestSessionEndsWhenAllFinish(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	collector := &eventCollector{}
	s.bus.Subscribe(collector)
	startGame(t, s)

	// Empty both hands so the scores tie at zero: the tie must break to
	// the first seat in roster order.
	for _, seat := range s.active {
		for _, card := range seat.Hand.Cards() {
			if _, _, err := s.RemoveFromHand(seat, card.ID); err != nil {
				t.Fatalf("RemoveFromHand failed: %v", err)
			}
		}
		seat.HasFinished = true
	}

	if err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: s.turnOwner}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.state != Ended {
		t.Fatalf("Expected Ended, got %v", s.state)
	}

	event := collector.last(EventTypeGameEnded)
	if event == nil {
		t.Fatal("Expected a game ended event")
	}
	ended := event.(GameEndedEvent)
	if ended.Winner != s.active[0].ID {
		t.Errorf("Tied scores should break to roster order, winner %s", ended.Winner)
	}
	if len(ended.Scores) != 2 {
		t.Errorf("Expected 2 scores, got %d", len(ended.Scores))
	}
}

func TestSessionRestartsAfterEnd(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	for _, seat := range s.active {
		seat.HasFinished = true
	}
	if err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: s.turnOwner}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.state != Ended {
		t.Fatalf("Expected Ended, got %v", s.state)
	}

	// RestartDelay is zero, so the reset is already queued.
	drain(s)
	if s.state != WaitingToStart {
		t.Fatalf("Session should return to WaitingToStart, got %v", s.state)
	}
	for _, seat := range s.seats {
		if seat.Hand.Len() != 0 || seat.HasFinished {
			t.Errorf("Seat %s should be reset", seat.ID)
		}
		if !seat.IsBound() {
			t.Errorf("Reset must preserve seat bindings")
		}
	}
	if s.pool.Active() != 0 {
		t.Errorf("All entities should be pooled after reset, %d active", s.pool.Active())
	}
}

func TestSessionActionClearsStaleGates(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 2})
	bindSeats(s, 2)
	startGame(t, s)

	owner := s.active[0]
	// Arm an extra gate on a held card; committing any action must clear
	// it before the next decision point's gates open.
	card, _ := owner.Hand.CardAt(0)
	s.interact.Bind([]*Card{card}, []string{owner.ID}, Action{Kind: "advance"}, "extra", true)

	if err := s.executeAction(Action{Kind: "advance", EndsTurn: true, Actor: owner.ID}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if card.Gate().Enabled() {
		t.Error("Stale card gate should have been cleared on commit")
	}
	if !s.deckGate.Allows(s.active[1].ID) {
		t.Error("New owner's turn gates should be open")
	}
	if s.deckGate.Allows(owner.ID) {
		t.Error("Old owner must not retain the deck gate")
	}
}

func TestSessionHandlerErrorRestoresTurnGates(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	owner := s.active[0]
	err := s.executeAction(Action{Kind: "boom", Actor: owner.ID})
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("Expected handler error, got %v", err)
	}
	if s.turnOwner != owner.ID {
		t.Error("Handler error must not advance the turn")
	}
	if !s.deckGate.Allows(owner.ID) {
		t.Error("Owner's standing gates should be restored after a handler error")
	}
}

func TestSessionDrawReshufflesPileIntoStock(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	// Exhaust the stock onto the pile.
	for s.StockSize() > 0 {
		card, err := s.DrawFromStock(Position{})
		if err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		if err := s.PlaceOnPile(card); err != nil {
			t.Fatalf("PlaceOnPile failed: %v", err)
		}
	}

	pileSize := s.PileSize()
	top := s.PileTop()
	card, err := s.DrawFromStock(Position{})
	if err != nil {
		t.Fatalf("Draw should trigger a reshuffle, got %v", err)
	}
	if card == nil {
		t.Fatal("Expected a card from the recycled stock")
	}
	if s.PileSize() != 1 || s.PileTop() != top {
		t.Errorf("Reshuffle must leave exactly the top card, pile %d", s.PileSize())
	}
	if s.StockSize() != pileSize-2 {
		t.Errorf("Expected %d recycled definitions after drawing one, got %d", pileSize-2, s.StockSize())
	}
}

func TestSessionTurnEndReturnsUnresolvedDraw(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	stockBefore := s.StockSize()
	activeBefore := s.pool.Active()
	card, err := s.DrawFromStock(Position{})
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	s.SetDrawnCard(card)
	def := card.Def

	// The turn ends with the draw unresolved, as on a disconnect.
	s.nextTurn()

	if s.drawnCard != nil {
		t.Error("An unresolved draw must not survive the turn")
	}
	if s.pool.Active() != activeBefore {
		t.Errorf("Leased entity should be released, active %d -> %d", activeBefore, s.pool.Active())
	}
	if s.StockSize() != stockBefore {
		t.Errorf("Stock should recover the definition: %d -> %d", stockBefore, s.StockSize())
	}
	found := false
	for _, d := range s.stock {
		if d == def {
			found = true
			break
		}
	}
	if !found {
		t.Error("The drawn definition must return to the stock")
	}
}

func TestSessionResumeSeatAfterDisconnect(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	seatA, resumeA, err := s.BindSeat("ep_a")
	if err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	if _, _, err := s.BindSeat("ep_b"); err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	if err := s.RequestStart("ep_a"); err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}
	waitFor(t, s, func(s *Session) bool { return s.state == Playing })

	s.UnbindEndpoint("ep_a")
	s.Inspect(func(s *Session) {
		seat := s.SeatByID(seatA)
		if !seat.HasFinished || seat.IsBound() {
			t.Error("A disconnect mid-game finishes and unbinds the seat")
		}
	})

	if _, err := s.ResumeSeat("ep_c", "tok_bogus"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("A bad credential must be declined, got %v", err)
	}

	resumed, err := s.ResumeSeat("ep_c", resumeA)
	if err != nil {
		t.Fatalf("ResumeSeat failed: %v", err)
	}
	if resumed != seatA {
		t.Errorf("Resume should reclaim the original seat, got %s", resumed)
	}
	s.Inspect(func(s *Session) {
		seat := s.SeatByID(seatA)
		if seat.Endpoint != "ep_c" {
			t.Errorf("Resumed seat should bind the new endpoint, got %s", seat.Endpoint)
		}
		if seat.HasFinished {
			t.Error("A seat finished only by its disconnect re-enters the rotation")
		}
	})
}

func TestSessionResumeKeepsLockedFinish(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	if _, _, err := s.BindSeat("ep_a"); err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	seatB, resumeB, err := s.BindSeat("ep_b")
	if err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	if err := s.RequestStart("ep_a"); err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}
	waitFor(t, s, func(s *Session) bool { return s.state == Playing })

	// The seat finishes by its own play, then drops.
	s.Inspect(func(s *Session) { s.SeatByID(seatB).HasFinished = true })
	s.UnbindEndpoint("ep_b")

	resumed, err := s.ResumeSeat("ep_c", resumeB)
	if err != nil {
		t.Fatalf("ResumeSeat failed: %v", err)
	}
	if resumed != seatB {
		t.Errorf("Resume should reclaim the original seat, got %s", resumed)
	}
	s.Inspect(func(s *Session) {
		if !s.SeatByID(seatB).HasFinished {
			t.Error("A seat locked by its own play stays finished after resume")
		}
	})
}

func TestSessionMoveToHandRejectsDoubleResidence(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	a, b := s.active[0], s.active[1]
	card, _ := a.Hand.CardAt(0)
	if err := s.MoveToHand(card, b, 0); !errors.Is(err, ErrInvalidTransfer) {
		t.Fatalf("A held card must not enter a second hand, got %v", err)
	}
	if b.Hand.Len() != 1 {
		t.Error("Failed transfer must not change the target hand")
	}
}

func TestSessionRemoveFromHandPrunesMemory(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 2})
	bindSeats(s, 2)
	startGame(t, s)

	a, b := s.active[0], s.active[1]
	card, _ := a.Hand.CardAt(0)
	s.RevealTo(card, a, b)
	if !a.HasSeen(card.ID) || !b.HasSeen(card.ID) {
		t.Fatal("Reveal should mark both memories")
	}

	if _, _, err := s.RemoveFromHand(a, card.ID); err != nil {
		t.Fatalf("RemoveFromHand failed: %v", err)
	}
	if a.HasSeen(card.ID) || b.HasSeen(card.ID) {
		t.Error("A card leaving a hand must be pruned from every memory")
	}
}

func TestSessionSnapshotReplicatesGates(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})
	bindSeats(s, 2)
	startGame(t, s)

	snap := s.snapshotLocked()
	if snap.State != "playing" {
		t.Errorf("Expected playing state, got %s", snap.State)
	}
	if snap.TurnOwner != s.turnOwner {
		t.Errorf("Snapshot turn owner mismatch: %s", snap.TurnOwner)
	}

	found := false
	for _, gate := range snap.Gates {
		if gate.Entity == DeckEntity {
			found = true
			if len(gate.Allowed) != 1 || gate.Allowed[0] != s.turnOwner {
				t.Errorf("Deck gate should allow only the owner, got %v", gate.Allowed)
			}
			if gate.Kind != "advance" {
				t.Errorf("Gate kind mismatch: %s", gate.Kind)
			}
		}
	}
	if !found {
		t.Error("Snapshot should include the enabled deck gate")
	}
	for _, seat := range snap.Seats {
		if len(seat.Hand) != 1 {
			t.Errorf("Seat snapshot should list hand ids, got %d", len(seat.Hand))
		}
	}
}

func TestSessionPublicAPIOverLoop(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, 2, &stubRules{deal: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	seatA, _, err := s.BindSeat("ep_a")
	if err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	seatB, _, err := s.BindSeat("ep_b")
	if err != nil {
		t.Fatalf("BindSeat failed: %v", err)
	}
	if again, _, _ := s.BindSeat("ep_a"); again != seatA {
		t.Error("Rebinding an endpoint should return its existing seat")
	}

	if err := s.RequestStart("ep_b"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Only the first participant may start, got %v", err)
	}
	if err := s.RequestStart("ep_a"); err != nil {
		t.Fatalf("RequestStart failed: %v", err)
	}

	waitFor(t, s, func(s *Session) bool { return s.state == Playing })

	// The owner fires the deck gate; the other endpoint is declined by
	// the gate itself.
	var owner string
	s.Inspect(func(s *Session) { owner = s.turnOwner })
	ownerEp, otherEp := "ep_a", "ep_b"
	if owner == seatB {
		ownerEp, otherEp = "ep_b", "ep_a"
	}

	if err := s.HandleTrigger(otherEp, DeckEntity); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Non-owner trigger should be declined, got %v", err)
	}
	if err := s.HandleTrigger(ownerEp, DeckEntity); err != nil {
		t.Fatalf("Owner trigger failed: %v", err)
	}

	waitFor(t, s, func(s *Session) bool { return s.turnOwner != owner && s.turnOwner != "" })
}

func waitFor(t *testing.T, s *Session, cond func(*Session) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		s.Inspect(func(s *Session) { ok = cond(s) })
		if ok {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Condition not reached in time")
}
