package game

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cambio/internal/deck"
	"github.com/lox/cambio/internal/ident"
	"github.com/lox/cambio/internal/randutil"
)

// State is the session lifecycle state.
type State int

const (
	WaitingToStart State = iota
	Starting
	Playing
	ShowingResult
	Ended
)

// String returns the string representation of a session state
func (s State) String() string {
	switch s {
	case WaitingToStart:
		return "waiting_to_start"
	case Starting:
		return "starting"
	case Playing:
		return "playing"
	case ShowingResult:
		return "showing_result"
	case Ended:
		return "ended"
	default:
		return "?"
	}
}

// DeckEntity is the replication key of the draw-pile gate.
const DeckEntity = "deck"

// PileEntity is the replication key of the discard-pile gate.
const PileEntity = "pile"

// Config carries the session engine's tunables. Durations of zero execute
// the corresponding step immediately, which is what the tests use.
type Config struct {
	SeatCount       int
	ComputerFill    bool
	DealDelay       time.Duration
	ThinkDelay      time.Duration
	RestartDelay    time.Duration
	PoolLowWater    int
	PoolRefillBatch int
	Seed            int64
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		SeatCount:       4,
		ComputerFill:    true,
		DealDelay:       300 * time.Millisecond,
		ThinkDelay:      1200 * time.Millisecond,
		RestartDelay:    10 * time.Second,
		PoolLowWater:    4,
		PoolRefillBatch: 8,
	}
}

// Session is the authoritative turn/action engine for one match. It owns
// the seat roster, pile, pool and interaction manager, and serializes all
// mutation onto a single authority loop. One session is created at process
// start and lives forever: Ended transitions back to WaitingToStart after a
// fixed delay.
type Session struct {
	id     string
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	rules  RuleModule
	policy Policy

	pool     *CardPool
	interact *InteractionManager
	bus      EventBus
	loop     *loop
	idgen    *ident.Generator

	state        State
	seats        []*Seat
	active       []*Seat
	turnIndex    int
	turnOwner    string
	authorized   string
	hostEndpoint string

	pile      []*Card
	stock     []deck.Card
	drawnCard *Card
	deckGate  Gate
	pileGate  Gate

	window interjectionWindow
	give   *pendingGive
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects the clock used for every delay and window timer.
func WithClock(clock quartz.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithRNG injects the random source used for shuffling and id generation.
func WithRNG(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// NewSession creates the engine with its composed services. The rule
// module supplies game semantics; the policy drives computer seats.
func NewSession(logger *log.Logger, cfg Config, rules RuleModule, policy Policy, opts ...Option) *Session {
	s := &Session{
		id:     ident.NewSessionID(),
		cfg:    cfg,
		logger: logger.WithPrefix("session"),
		clock:  quartz.NewReal(),
		rules:  rules,
		policy: policy,
		bus:    NewEventBus(),
		loop:   newLoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = randutil.New(seed)
	}

	s.idgen = ident.NewGenerator(intnAdapter{s.rng})
	s.pool = NewCardPool(s.logger, cfg.PoolLowWater, cfg.PoolRefillBatch, s.loop.post)
	s.interact = NewInteractionManager(s.logger)
	s.interact.SetOnChange(func() {
		s.publish(GatesChangedEvent{timestamp: s.clock.Now()})
	})
	s.interact.RegisterStandalone(DeckEntity, &s.deckGate)
	s.interact.RegisterStandalone(PileEntity, &s.pileGate)

	for i := 0; i < cfg.SeatCount; i++ {
		seat := NewSeat(s.idgen)
		s.seats = append(s.seats, seat)
		s.interact.RegisterStandalone(seat.EntityKey(), seat.MarkerGate())
	}

	s.logger.Info("Session created", "id", s.id, "seats", cfg.SeatCount, "rules", rules.Name())
	return s
}

type intnAdapter struct{ rng *rand.Rand }

func (a intnAdapter) Intn(n int) int { return a.rng.IntN(n) }

// Run processes authority steps until the context is cancelled. All
// mutation, including timer callbacks, happens on this goroutine.
func (s *Session) Run(ctx context.Context) {
	s.loop.run(ctx)
}

// Sync posts a no-op step and waits for it, guaranteeing every previously
// posted step has been processed. Used by tests and the transport layer.
func (s *Session) Sync() {
	_ = s.loop.call(func() error { return nil })
}

// Inspect runs fn on the authority loop for race-free reads.
func (s *Session) Inspect(fn func(*Session)) {
	_ = s.loop.call(func() error {
		fn(s)
		return nil
	})
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Bus returns the engine's event emitter. Presentation collaborators
// subscribe before Run is called; they never mutate engine state.
func (s *Session) Bus() EventBus { return s.bus }

// ---------------------------------------------------------------------------
// Thread-safe request surface (posts onto the authority loop)

// BindSeat attaches a participant endpoint to the first unbound seat. It
// returns the seat id and the seat's resume credential, which a
// reconnecting client presents to ResumeSeat to reclaim the seat from a
// fresh endpoint. Rebinding an endpoint already at the table returns its
// existing seat.
func (s *Session) BindSeat(endpoint string) (string, string, error) {
	var seatID, resume string
	err := s.loop.call(func() error {
		for _, seat := range s.seats {
			if seat.Endpoint == endpoint {
				seatID = seat.ID
				resume = seat.ResumeToken
				return nil
			}
		}
		for _, seat := range s.seats {
			if !seat.IsBound() && !seat.IsComputerControlled {
				seat.Bind(endpoint)
				seatID = seat.ID
				resume = seat.ResumeToken
				if s.hostEndpoint == "" {
					s.hostEndpoint = endpoint
				}
				s.logger.Info("Seat bound", "seat", seat.ID, "endpoint", endpoint)
				return nil
			}
		}
		return fmt.Errorf("no free seat for endpoint %s", endpoint)
	})
	return seatID, resume, err
}

// ResumeSeat rebinds a reconnecting participant to its seat via the resume
// credential issued at bind time. A seat finished only because its
// endpoint dropped re-enters the turn rotation; a seat locked by its own
// play stays finished.
func (s *Session) ResumeSeat(endpoint, resume string) (string, error) {
	var seatID string
	err := s.loop.call(func() error {
		if resume == "" {
			return fmt.Errorf("%w: empty resume credential", ErrNotAllowed)
		}
		for _, seat := range s.seats {
			if seat.ResumeToken != resume {
				continue
			}
			if seat.IsBound() && seat.Endpoint != endpoint {
				return fmt.Errorf("%w: seat %s is still bound", ErrNotAllowed, seat.ID)
			}
			seat.Bind(endpoint)
			if seat.droppedOut {
				seat.droppedOut = false
				seat.HasFinished = false
			}
			if s.hostEndpoint == "" {
				s.hostEndpoint = endpoint
			}
			seatID = seat.ID
			s.logger.Info("Seat resumed", "seat", seat.ID, "endpoint", endpoint)
			return nil
		}
		return fmt.Errorf("%w: no seat for resume credential", ErrNotAllowed)
	})
	return seatID, err
}

// UnbindEndpoint detaches a disconnected participant. Mid-game the seat is
// marked finished so the scheduler skips it; it keeps its hand and remains
// eligible for interjection gates until game end.
func (s *Session) UnbindEndpoint(endpoint string) {
	_ = s.loop.call(func() error {
		for _, seat := range s.seats {
			if seat.Endpoint != endpoint {
				continue
			}
			seat.Unbind()
			s.logger.Info("Seat unbound", "seat", seat.ID, "endpoint", endpoint)
			if s.hostEndpoint == endpoint {
				s.hostEndpoint = ""
				for _, other := range s.seats {
					if other.IsBound() {
						s.hostEndpoint = other.Endpoint
						break
					}
				}
			}
			if s.state == Playing && !seat.HasFinished {
				seat.HasFinished = true
				seat.droppedOut = true
				if s.turnOwner == seat.ID {
					s.EndTurn()
				}
			}
			return nil
		}
		return nil
	})
}

// RequestStart begins a new game. Only the first bound participant may
// fire it, and only with at least two bound seats or computer fill.
func (s *Session) RequestStart(endpoint string) error {
	return s.loop.call(func() error {
		if s.state != WaitingToStart {
			return fmt.Errorf("%w: %s", ErrBadState, s.state)
		}
		if endpoint != s.hostEndpoint || s.hostEndpoint == "" {
			return fmt.Errorf("%w: only the first participant may start", ErrNotAllowed)
		}
		bound := 0
		for _, seat := range s.seats {
			if seat.IsBound() {
				bound++
			}
		}
		if bound < 2 && !s.cfg.ComputerFill {
			return fmt.Errorf("%w: need at least 2 bound seats", ErrBadState)
		}
		s.beginStarting()
		return nil
	})
}

// HandleTrigger fires the gate on the given entity as the given endpoint.
// Failures decline the request and change no state: the requester's gates
// are left as they were.
func (s *Session) HandleTrigger(endpoint, entity string) error {
	return s.loop.call(func() error {
		seat := s.seatByEndpoint(endpoint)
		if seat == nil {
			return fmt.Errorf("%w: endpoint %s holds no seat", ErrNotAllowed, endpoint)
		}
		gate, trigger, err := s.resolveEntity(entity)
		if err != nil {
			return err
		}
		act, err := gate.Trigger(seat.ID, trigger)
		if err != nil {
			return err
		}
		// The registry is rebuilt on every reset; a trigger racing a
		// commit loses its binding and is declined here.
		if !s.interact.Bound(seat.ID, act.Kind) {
			return ErrNotAllowed
		}
		return s.executeAction(act)
	})
}

// Submit runs an action through the execution pipeline on behalf of the
// authority itself, bypassing gates. AI decisions and tests use it; remote
// requests go through HandleTrigger.
func (s *Session) Submit(act Action) error {
	return s.loop.call(func() error {
		return s.executeAction(act)
	})
}

// Snapshot returns the replicated view the authority publishes on change.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	_ = s.loop.call(func() error {
		snap = s.snapshotLocked()
		return nil
	})
	return snap
}

// ---------------------------------------------------------------------------
// State machine (authority loop only)

func (s *Session) setState(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.logger.Info("State transition", "from", from, "to", to)
	s.publish(StateChangedEvent{From: from, To: to, timestamp: s.clock.Now()})
}

func (s *Session) beginStarting() {
	s.setState(Starting)

	// Build the active roster: bound seats, plus computer fill when
	// enabled. Unbound seats stay out otherwise.
	s.active = s.active[:0]
	for _, seat := range s.seats {
		if seat.IsBound() {
			seat.IsComputerControlled = false
			s.active = append(s.active, seat)
		} else if s.cfg.ComputerFill {
			seat.IsComputerControlled = true
			s.active = append(s.active, seat)
		}
	}

	// Reset all per-session state before dealing.
	s.pile = s.pile[:0]
	s.drawnCard = nil
	s.give = nil
	s.window.reset()
	for _, seat := range s.seats {
		seat.Reset()
	}
	s.interact.ResetAll(s.seats)
	s.pool.ReleaseAll()
	s.pool.Initialize(deck.Size)

	s.stock = deck.Definitions()
	randutil.Shuffle(s.rng, s.stock)

	s.logger.Info("Game starting", "active", len(s.active), "stock", len(s.stock))
	s.rules.DealInitialCards(s)
}

// DealRoundRobin deals count cards to every active seat, one card per seat
// per round with the configured inter-deal delay, then runs onComplete and
// transitions to Playing. Rule modules call it from DealInitialCards.
func (s *Session) DealRoundRobin(count int, onComplete func()) {
	total := count * len(s.active)
	s.dealStep(0, total, onComplete)
}

func (s *Session) dealStep(i, total int, onComplete func()) {
	if s.state != Starting {
		return
	}
	if i >= total {
		if onComplete != nil {
			onComplete()
		}
		s.beginPlaying()
		return
	}

	seat := s.active[i%len(s.active)]
	card, err := s.DrawFromStock(Position{})
	if err != nil {
		s.logger.Error("Deal failed", "seat", seat.ID, "error", err)
	} else if err := s.MoveToHand(card, seat, seat.Hand.Len()); err != nil {
		s.logger.Error("Deal transfer failed", "seat", seat.ID, "error", err)
	}

	s.afterDelay(s.cfg.DealDelay, func() {
		s.dealStep(i+1, total, onComplete)
	})
}

func (s *Session) beginPlaying() {
	s.setState(Playing)
	roster := make([]string, len(s.active))
	for i, seat := range s.active {
		roster[i] = seat.ID
	}
	s.publish(GameStartedEvent{SessionID: s.id, Seats: roster, timestamp: s.clock.Now()})
	s.turnIndex = -1
	s.nextTurn()
}

// nextTurn ends the current turn, advances the scheduler, and either opens
// the interjection window or begins the next turn directly.
func (s *Session) nextTurn() {
	if s.state != Playing {
		return
	}

	if s.turnOwner != "" {
		if owner := s.SeatByID(s.turnOwner); owner != nil {
			owner.IsTurnActive = false
		}
		s.publish(TurnEndedEvent{Seat: s.turnOwner, timestamp: s.clock.Now()})
	}
	s.turnOwner = ""
	s.authorized = ""
	if s.drawnCard != nil {
		// A turn can end with its draw unresolved (disconnect, stalled
		// policy). The definition goes back into the stock and the entity
		// returns to the pool; the supply must not shrink mid-game.
		s.stock = append(s.stock, s.drawnCard.Def)
		randutil.Shuffle(s.rng, s.stock)
		if err := s.pool.Release(s.drawnCard); err != nil {
			s.logger.Error("Drawn card release failed", "card", s.drawnCard.ID, "error", err)
		}
		s.drawnCard = nil
	}
	s.give = nil
	s.interact.ResetAll(s.seats)

	if s.rules.HasGameEnded(s.active) {
		s.showResults()
		return
	}

	next := s.nextUnfinished(s.turnIndex)
	if next == -1 {
		s.showResults()
		return
	}
	s.turnIndex = next

	if d := s.rules.InterjectionWindow(); d > 0 && len(s.pile) > 0 {
		s.openInterjectionWindow(d)
		return
	}
	s.beginTurn()
}

// nextUnfinished returns the index of the first active seat after from
// that has not finished, scanning at most one full lap, or -1.
func (s *Session) nextUnfinished(from int) int {
	n := len(s.active)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if !s.active[idx].HasFinished {
			return idx
		}
	}
	return -1
}

func (s *Session) beginTurn() {
	if s.state != Playing {
		return
	}
	seat := s.active[s.turnIndex]
	if seat.HasFinished {
		// The scheduled seat finished while the interjection window was
		// open (a disconnect lands here). Re-run the scheduler directly;
		// the window already ran for this gap.
		if s.rules.HasGameEnded(s.active) {
			s.showResults()
			return
		}
		next := s.nextUnfinished(s.turnIndex)
		if next == -1 {
			s.showResults()
			return
		}
		s.turnIndex = next
		seat = s.active[next]
	}
	s.turnOwner = seat.ID
	s.authorized = seat.Endpoint
	seat.IsTurnActive = true
	s.logger.Info("Turn started", "seat", seat.ID, "endpoint", seat.Endpoint, "computer", seat.IsComputerControlled)
	s.publish(TurnStartedEvent{Seat: seat.ID, Endpoint: seat.Endpoint, timestamp: s.clock.Now()})

	if seat.IsBound() {
		s.rules.OpenTurnGates(s, seat)
	}
	if seat.IsComputerControlled {
		s.ConsultPolicy(ContextStartTurn, seat, nil)
	}
}

// EndTurn invokes the next-turn transition. Rule modules call it for
// actions whose turn-ending is conditional; actions tagged EndsTurn get it
// automatically.
func (s *Session) EndTurn() {
	s.nextTurn()
}

// executeAction is the tagged-action execution pipeline.
func (s *Session) executeAction(act Action) error {
	if s.state != Playing {
		return fmt.Errorf("%w: %s", ErrBadState, s.state)
	}
	actor := s.SeatByID(act.Actor)
	if actor == nil {
		return fmt.Errorf("%w: unknown actor %s", ErrNotAllowed, act.Actor)
	}

	// Interjection attempts run through the window machinery with its own
	// claim-flag serialization; they are out-of-turn by design.
	switch act.Kind {
	case ActionStack:
		return s.handleStack(act, actor)
	case ActionGiveCard:
		return s.handleGive(act, actor)
	}

	if s.rules.IsTurnExclusive() && s.turnOwner != "" && act.Actor != s.turnOwner {
		s.logger.Debug("Action rejected out of turn", "actor", act.Actor, "owner", s.turnOwner, "kind", act.Kind)
		return ErrOutOfTurn
	}

	// Clear every gate before dispatch so a stale affordance can never be
	// double-submitted; the handler opens the next decision point's gates.
	s.interact.ResetAll(s.seats)

	if err := s.rules.HandleAction(s, act); err != nil {
		s.logger.Warn("Action handler declined", "kind", act.Kind, "actor", act.Actor, "error", err)
		// Restore the standing turn affordances for the owner's decision
		// point; mid-sequence gates are the handler's to reopen.
		if owner := s.SeatByID(s.turnOwner); owner != nil && owner.IsBound() && s.drawnCard == nil {
			s.rules.OpenTurnGates(s, owner)
		}
		return err
	}

	s.publish(ActionExecutedEvent{Action: act, timestamp: s.clock.Now()})

	if act.EndsTurn {
		s.nextTurn()
	} else if s.rules.HasGameEnded(s.active) {
		s.showResults()
	}
	return nil
}

// ConsultPolicy schedules the computer policy for a seat after the
// configured thinking delay. The returned action is executed through the
// same pipeline a human request would use.
func (s *Session) ConsultPolicy(ctx PolicyContext, seat *Seat, trigger *Card) {
	if s.policy == nil || !seat.IsComputerControlled {
		return
	}
	turnOwner := s.turnOwner
	s.afterDelay(s.cfg.ThinkDelay, func() {
		if s.state != Playing {
			return
		}
		// The decision point may have passed while thinking.
		if ctx != ContextAfterTurnInterjectionWindow && s.turnOwner != turnOwner {
			return
		}
		act, ok := s.policy.Decide(ctx, s, seat, trigger)
		if !ok {
			if ctx == ContextStartTurn || ctx == ContextAfterDraw || ctx == ContextAbilityTrigger {
				// A stalled computer turn must still end.
				s.EndTurn()
			}
			return
		}
		if err := s.executeAction(act); err != nil {
			s.logger.Warn("Policy action declined", "seat", seat.ID, "kind", act.Kind, "error", err)
			if ctx != ContextAfterTurnInterjectionWindow {
				s.EndTurn()
			}
		}
	})
}

func (s *Session) showResults() {
	if s.state != Playing {
		return
	}
	s.setState(ShowingResult)
	s.interact.ResetAll(s.seats)
	s.turnOwner = ""
	s.authorized = ""

	// Reveal every hand before scoring.
	for _, seat := range s.active {
		for _, card := range seat.Hand.Cards() {
			s.RevealToAll(card)
		}
	}

	scores := make(map[string]int, len(s.active))
	winner := ""
	best := 0
	// Ties break to the first seat in roster iteration order: an explicit
	// rule, not an accident of map ordering.
	for _, seat := range s.active {
		score := s.rules.ComputeScore(seat)
		scores[seat.ID] = score
		if winner == "" || score < best {
			winner = seat.ID
			best = score
		}
	}
	s.logger.Info("Game ended", "winner", winner, "score", best)
	s.publish(GameEndedEvent{SessionID: s.id, Scores: scores, Winner: winner, timestamp: s.clock.Now()})

	s.setState(Ended)
	s.afterDelay(s.cfg.RestartDelay, s.resetToWaiting)
}

func (s *Session) resetToWaiting() {
	if s.state != Ended {
		return
	}
	for _, seat := range s.seats {
		seat.Reset()
	}
	s.interact.ResetAll(s.seats)
	s.pool.ReleaseAll()
	s.pile = s.pile[:0]
	s.drawnCard = nil
	s.setState(WaitingToStart)
}

// ---------------------------------------------------------------------------
// Card movement helpers (authority loop only; used by rule modules)

// DrawFromStock leases a pooled entity and assigns it the next undealt
// definition. When the stock is empty the pile below its top card is
// reshuffled back in; if nothing remains the draw fails with
// ErrPoolExhausted and the caller must surface a no-op or forced skip.
func (s *Session) DrawFromStock(pos Position) (*Card, error) {
	if len(s.stock) == 0 {
		s.reshufflePileIntoStock()
	}
	if len(s.stock) == 0 {
		return nil, fmt.Errorf("%w: stock empty", ErrPoolExhausted)
	}
	card, err := s.pool.Lease(pos)
	if err != nil {
		return nil, err
	}
	card.Def = s.stock[len(s.stock)-1]
	s.stock = s.stock[:len(s.stock)-1]
	card.FaceUp = false
	return card, nil
}

// reshufflePileIntoStock returns every pile definition except the top card
// to the stock, releasing the card entities.
func (s *Session) reshufflePileIntoStock() {
	if len(s.pile) <= 1 {
		return
	}
	recycled := s.pile[:len(s.pile)-1]
	top := s.pile[len(s.pile)-1]
	for _, card := range recycled {
		s.stock = append(s.stock, card.Def)
		if err := s.pool.Release(card); err != nil {
			s.logger.Error("Reshuffle release failed", "card", card.ID, "error", err)
		}
	}
	s.pile = s.pile[:0]
	s.pile = append(s.pile, top)
	randutil.Shuffle(s.rng, s.stock)
	s.logger.Info("Pile reshuffled into stock", "stock", len(s.stock))
}

// MoveToHand inserts a card into a seat's hand at the given slot. The card
// must not already reside in a hand: a card lives in at most one hand or
// the pile at any instant, enforced here rather than by the Hand.
func (s *Session) MoveToHand(card *Card, seat *Seat, index int) error {
	if card.Loc.Kind == LocInHand {
		return fmt.Errorf("%w: %s already held by seat %s", ErrInvalidTransfer, card, card.Loc.Seat)
	}
	if card.Loc.Kind == LocOnPile {
		return fmt.Errorf("%w: %s is on the pile", ErrInvalidTransfer, card)
	}
	from := card.Loc
	if err := seat.Hand.InsertAt(index, card); err != nil {
		return err
	}
	card.Loc = Location{Kind: LocInHand, Seat: seat.ID}
	card.FaceUp = false
	s.publish(CardMovedEvent{Card: card.ID, From: from, To: card.Loc, Pos: card.Pos, timestamp: s.clock.Now()})
	return nil
}

// RemoveFromHand takes a card out of a seat's hand, returning the card and
// the slot it occupied. Every seat's memory of the card is pruned: a card
// leaving a hand no longer has a stable, rememberable slot.
func (s *Session) RemoveFromHand(seat *Seat, id CardID) (*Card, int, error) {
	idx := seat.Hand.IndexOf(id)
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: card %d not held by seat %s", ErrInvalidTransfer, id, seat.ID)
	}
	card, _ := seat.Hand.CardAt(idx)
	if _, err := seat.Hand.Remove(id); err != nil {
		return nil, -1, err
	}
	card.Loc = Location{Kind: LocPooled}
	for _, other := range s.seats {
		other.ForgetSeen(id)
	}
	return card, idx, nil
}

// PlaceOnPile appends a card face up to the pile.
func (s *Session) PlaceOnPile(card *Card) error {
	if card.Loc.Kind == LocInHand {
		return fmt.Errorf("%w: %s still held by seat %s", ErrInvalidTransfer, card, card.Loc.Seat)
	}
	from := card.Loc
	card.Loc = Location{Kind: LocOnPile}
	card.FaceUp = true
	s.pile = append(s.pile, card)
	s.publish(CardMovedEvent{Card: card.ID, From: from, To: card.Loc, Pos: card.Pos, timestamp: s.clock.Now()})
	return nil
}

// TakePileTop removes and returns the top pile card.
func (s *Session) TakePileTop() (*Card, error) {
	if len(s.pile) == 0 {
		return nil, fmt.Errorf("%w: pile empty", ErrInvalidTransfer)
	}
	card := s.pile[len(s.pile)-1]
	s.pile = s.pile[:len(s.pile)-1]
	card.Loc = Location{Kind: LocPooled}
	return card, nil
}

// GiveCard moves a card from one seat's hand to the end of another's.
func (s *Session) GiveCard(from, to *Seat, id CardID) error {
	card, _, err := s.RemoveFromHand(from, id)
	if err != nil {
		return err
	}
	return s.MoveToHand(card, to, to.Hand.Len())
}

// RevealTo shows a card's face to specific seats, recording it in each
// revealed seat's memory.
func (s *Session) RevealTo(card *Card, seats ...*Seat) {
	ids := make([]string, len(seats))
	for i, seat := range seats {
		seat.MarkSeen(card.ID)
		ids[i] = seat.ID
	}
	s.publish(CardRevealedEvent{Card: card.ID, Def: card.Def, ToSeats: ids, timestamp: s.clock.Now()})
}

// RevealToAll turns a card face up for every participant.
func (s *Session) RevealToAll(card *Card) {
	card.FaceUp = true
	for _, seat := range s.active {
		seat.MarkSeen(card.ID)
	}
	s.publish(CardRevealedEvent{Card: card.ID, Def: card.Def, timestamp: s.clock.Now()})
}

// ---------------------------------------------------------------------------
// Accessors (authority loop only)

// Rules returns the installed rule module.
func (s *Session) Rules() RuleModule { return s.rules }

// Interactions returns the interaction manager.
func (s *Session) Interactions() *InteractionManager { return s.interact }

// Pool returns the card pool.
func (s *Session) Pool() *CardPool { return s.pool }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// TurnOwner returns the seat id owning the current turn, empty between
// turns.
func (s *Session) TurnOwner() string { return s.turnOwner }

// AuthorizedEndpoint returns the endpoint allowed to act this turn.
func (s *Session) AuthorizedEndpoint() string { return s.authorized }

// Seats returns the full roster.
func (s *Session) Seats() []*Seat { return s.seats }

// ActiveSeats returns the seats playing the current game.
func (s *Session) ActiveSeats() []*Seat { return s.active }

// SeatByID returns a roster seat by id.
func (s *Session) SeatByID(id string) *Seat {
	for _, seat := range s.seats {
		if seat.ID == id {
			return seat
		}
	}
	return nil
}

// PileTop returns the top pile card, or nil.
func (s *Session) PileTop() *Card {
	if len(s.pile) == 0 {
		return nil
	}
	return s.pile[len(s.pile)-1]
}

// PileSize returns the pile depth.
func (s *Session) PileSize() int { return len(s.pile) }

// StockSize returns the number of undealt definitions.
func (s *Session) StockSize() int { return len(s.stock) }

// DrawnCard returns the card drawn this turn, or nil.
func (s *Session) DrawnCard() *Card { return s.drawnCard }

// SetDrawnCard records the card drawn this turn.
func (s *Session) SetDrawnCard(card *Card) { s.drawnCard = card }

// DeckGate returns the draw-pile's standalone gate.
func (s *Session) DeckGate() *Gate { return &s.deckGate }

// PileGate returns the discard-pile's standalone gate.
func (s *Session) PileGate() *Gate { return &s.pileGate }

// Rand returns the session's random source for rule-module use.
func (s *Session) Rand() *rand.Rand { return s.rng }

// Logger returns the session logger for rule-module use.
func (s *Session) Logger() *log.Logger { return s.logger }

func (s *Session) seatByEndpoint(endpoint string) *Seat {
	if endpoint == "" {
		return nil
	}
	for _, seat := range s.seats {
		if seat.Endpoint == endpoint {
			return seat
		}
	}
	return nil
}

// resolveEntity maps a replication key to its gate and triggering card id.
func (s *Session) resolveEntity(entity string) (*Gate, CardID, error) {
	if gate, ok := s.interact.StandaloneGate(entity); ok {
		return gate, 0, nil
	}
	var id int
	if _, err := fmt.Sscanf(entity, "card:%d", &id); err == nil {
		if card, ok := s.pool.Get(CardID(id)); ok {
			return card.Gate(), card.ID, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: unknown entity %q", ErrNotAllowed, entity)
}

// afterDelay schedules fn on the authority loop after d. A non-positive
// delay posts immediately, which lets tests collapse the cadence.
func (s *Session) afterDelay(d time.Duration, fn func()) {
	if d <= 0 {
		s.loop.post(fn)
		return
	}
	s.clock.AfterFunc(d, func() {
		s.loop.post(fn)
	})
}

func (s *Session) publish(event GameEvent) {
	s.bus.Publish(event)
}
