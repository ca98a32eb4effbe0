package cambio_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cambio/internal/cambio"
	"github.com/lox/cambio/internal/deck"
	"github.com/lox/cambio/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// collector records events off the authority loop for later assertions.
type collector struct {
	mu     sync.Mutex
	events []game.GameEvent
}

func (c *collector) OnEvent(event game.GameEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collector) find(eventType game.EventType) (game.GameEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.events {
		if event.EventType() == eventType {
			return event, true
		}
	}
	return nil, false
}

// newGame runs a two-seat Cambio session on a live authority loop with all
// delays collapsed and no interjection window, dealt and playing.
func newGame(t *testing.T) (*game.Session, *cambio.Rules, *collector) {
	t.Helper()
	rules := cambio.New(cambio.WithInterjectionWindow(0))
	s := game.NewSession(testLogger(), game.Config{
		SeatCount:    2,
		RestartDelay: time.Hour,
		Seed:         7,
	}, rules, nil)

	events := &collector{}
	s.Bus().Subscribe(events)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	for i := 0; i < 2; i++ {
		_, _, err := s.BindSeat(fmt.Sprintf("ep_%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, s.RequestStart("ep_0"))
	waitFor(t, s, func(s *game.Session) bool { return s.State() == game.Playing })
	return s, rules, events
}

func waitFor(t *testing.T, s *game.Session, cond func(*game.Session) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		s.Inspect(func(s *game.Session) { ok = cond(s) })
		if ok {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func turnOwner(s *game.Session) (seatID, endpoint string) {
	s.Inspect(func(s *game.Session) {
		seatID = s.TurnOwner()
		endpoint = s.AuthorizedEndpoint()
	})
	return seatID, endpoint
}

// finishTurn discards the drawn card and skips any ability it opened.
func finishTurn(t *testing.T, s *game.Session, seatID, endpoint string) {
	t.Helper()
	var drawn game.CardID
	s.Inspect(func(s *game.Session) {
		if card := s.DrawnCard(); card != nil {
			drawn = card.ID
		}
	})
	require.NotZero(t, drawn, "expected a drawn card to discard")
	require.NoError(t, s.HandleTrigger(endpoint, fmt.Sprintf("card:%d", drawn)))

	// A 7 through K opens an ability sequence; the seat marker skips it.
	stillOwner := false
	s.Inspect(func(s *game.Session) { stillOwner = s.TurnOwner() == seatID })
	if stillOwner {
		require.NoError(t, s.HandleTrigger(endpoint, "seat:"+seatID))
	}
}

func TestDealRevealsInitialPeeks(t *testing.T) {
	t.Parallel()
	s, _, _ := newGame(t)

	s.Inspect(func(s *game.Session) {
		for _, seat := range s.ActiveSeats() {
			require.Equal(t, cambio.HandSize, seat.Hand.Len())
			for i := 0; i < seat.Hand.Len(); i++ {
				card, _ := seat.Hand.CardAt(i)
				if i < cambio.InitialPeekCount {
					assert.True(t, seat.HasSeen(card.ID), "slot %d should be peeked", i)
				} else {
					assert.False(t, seat.HasSeen(card.ID), "slot %d should stay hidden", i)
				}
			}
		}
	})
}

func TestDrawThenDiscardEndsTurn(t *testing.T) {
	t.Parallel()
	s, _, _ := newGame(t)

	seatID, endpoint := turnOwner(s)
	require.NoError(t, s.HandleTrigger(endpoint, game.DeckEntity))

	s.Inspect(func(s *game.Session) {
		require.NotNil(t, s.DrawnCard())
		seat := s.SeatByID(seatID)
		assert.True(t, seat.HasSeen(s.DrawnCard().ID), "drawer sees the drawn face")
	})

	// The deck gate is gone until the drawn card is resolved.
	err := s.HandleTrigger(endpoint, game.DeckEntity)
	require.ErrorIs(t, err, game.ErrNotAllowed)

	finishTurn(t, s, seatID, endpoint)
	waitFor(t, s, func(s *game.Session) bool {
		return s.TurnOwner() != "" && s.TurnOwner() != seatID
	})

	s.Inspect(func(s *game.Session) {
		assert.Nil(t, s.DrawnCard())
		assert.GreaterOrEqual(t, s.PileSize(), 1)
	})
}

func TestSwapDrawnKeepsSlotAndDiscardsOld(t *testing.T) {
	t.Parallel()
	s, _, _ := newGame(t)

	seatID, endpoint := turnOwner(s)
	require.NoError(t, s.HandleTrigger(endpoint, game.DeckEntity))

	var drawnID, oldID game.CardID
	s.Inspect(func(s *game.Session) {
		drawnID = s.DrawnCard().ID
		card, _ := s.SeatByID(seatID).Hand.CardAt(2)
		oldID = card.ID
	})

	require.NoError(t, s.HandleTrigger(endpoint, fmt.Sprintf("card:%d", oldID)))
	waitFor(t, s, func(s *game.Session) bool { return s.TurnOwner() != seatID })

	s.Inspect(func(s *game.Session) {
		seat := s.SeatByID(seatID)
		require.Equal(t, cambio.HandSize, seat.Hand.Len())
		card, _ := seat.Hand.CardAt(2)
		assert.Equal(t, drawnID, card.ID, "drawn card takes the replaced slot")
		assert.False(t, seat.Hand.Contains(oldID))
		assert.True(t, seat.HasSeen(drawnID), "the swapper knows the face it swapped in")
		require.NotNil(t, s.PileTop())
		assert.Equal(t, oldID, s.PileTop().ID, "replaced card tops the pile")
	})
}

func TestCallCambioGrantsFinalTurns(t *testing.T) {
	t.Parallel()
	s, rules, events := newGame(t)

	first, firstEp := turnOwner(s)
	require.NoError(t, s.HandleTrigger(firstEp, "seat:"+first))
	require.Equal(t, first, rules.Caller())

	// Calling again is off the table for everyone.
	second, secondEp := turnOwner(s)
	require.NotEqual(t, first, second)
	err := s.HandleTrigger(secondEp, "seat:"+second)
	require.ErrorIs(t, err, game.ErrNotAllowed)

	// The last seat plays its final turn; the game then ends.
	require.NoError(t, s.HandleTrigger(secondEp, game.DeckEntity))
	finishTurn(t, s, second, secondEp)
	waitFor(t, s, func(s *game.Session) bool { return s.State() == game.Ended })

	event, ok := events.find(game.EventTypeGameEnded)
	require.True(t, ok, "expected a game ended event")
	ended := event.(game.GameEndedEvent)
	assert.Len(t, ended.Scores, 2)
	assert.NotEmpty(t, ended.Winner)
	assert.Contains(t, ended.Scores, ended.Winner)
}

func TestCallCambioDeclinedAfterDraw(t *testing.T) {
	t.Parallel()
	s, rules, _ := newGame(t)

	seatID, endpoint := turnOwner(s)
	require.NoError(t, s.HandleTrigger(endpoint, game.DeckEntity))

	// The marker gate was cleared on draw; the request declines without
	// touching the caller.
	err := s.HandleTrigger(endpoint, "seat:"+seatID)
	require.ErrorIs(t, err, game.ErrNotAllowed)
	assert.Empty(t, rules.Caller())
}

func TestComputeScore(t *testing.T) {
	t.Parallel()
	rules := cambio.New()

	seat := &game.Seat{ID: "seat_test"}
	for i, def := range []deck.Card{
		deck.NewCard(deck.Hearts, deck.King),    // red king: -1
		deck.NewCard(deck.RedJoker, deck.Joker), // joker: 0
		deck.NewCard(deck.Spades, deck.King),    // black king: 13
		deck.NewCard(deck.Clubs, deck.Five),     // 5
	} {
		require.NoError(t, seat.Hand.Add(&game.Card{ID: game.CardID(i + 1), Def: def}))
	}

	assert.Equal(t, 17, rules.ComputeScore(seat))
}

func TestStackMatches(t *testing.T) {
	t.Parallel()
	rules := cambio.New()

	top := &game.Card{ID: 1, Def: deck.NewCard(deck.Spades, deck.Seven)}
	match := &game.Card{ID: 2, Def: deck.NewCard(deck.Hearts, deck.Seven)}
	miss := &game.Card{ID: 3, Def: deck.NewCard(deck.Hearts, deck.Eight)}

	assert.True(t, rules.StackMatches(top, match))
	assert.False(t, rules.StackMatches(top, miss))
	assert.False(t, rules.StackMatches(nil, match))
	assert.False(t, rules.StackMatches(top, nil))
}

// dealTo leases a pooled entity with the given definition into a hand.
func dealTo(t *testing.T, s *game.Session, seat *game.Seat, def deck.Card) *game.Card {
	t.Helper()
	card, err := s.Pool().Lease(game.Position{})
	require.NoError(t, err)
	card.Def = def
	require.NoError(t, s.MoveToHand(card, seat, seat.Hand.Len()))
	return card
}

func TestPeekSwapRemembersReceivedCard(t *testing.T) {
	t.Parallel()
	rules := cambio.New()
	s := game.NewSession(testLogger(), game.Config{SeatCount: 2, Seed: 11}, rules, nil)
	seats := s.Seats()
	actor, other := seats[0], seats[1]

	s.Pool().Initialize(deck.Size)
	mine := dealTo(t, s, actor, deck.NewCard(deck.Clubs, deck.Two))
	theirs := dealTo(t, s, other, deck.NewCard(deck.Hearts, deck.Nine))

	// A discarded king opens the peek-then-swap sequence.
	king, err := s.Pool().Lease(game.Position{})
	require.NoError(t, err)
	king.Def = deck.NewCard(deck.Spades, deck.King)
	require.True(t, rules.ResolveAbility(s, king, actor))

	require.NoError(t, rules.HandleAction(s, game.Action{
		Kind: cambio.ActionSwapPickOther, Actor: actor.ID, PrimaryCard: theirs.ID,
	}))
	require.True(t, actor.HasSeen(theirs.ID), "the peek shows the other seat's card")

	require.NoError(t, rules.HandleAction(s, game.Action{
		Kind: cambio.ActionSwapPickMine, Actor: actor.ID, PrimaryCard: mine.ID,
	}))
	require.True(t, actor.Hand.Contains(theirs.ID))
	require.True(t, other.Hand.Contains(mine.ID))
	assert.True(t, actor.HasSeen(theirs.ID), "the peeked face stays known after the swap")
	assert.False(t, other.HasSeen(mine.ID), "the swap stays blind for the other seat")
}

func TestAbilityFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		rank deck.Rank
		want cambio.Ability
	}{
		{deck.Six, cambio.AbilityNone},
		{deck.Seven, cambio.AbilityPeekSelf},
		{deck.Eight, cambio.AbilityPeekSelf},
		{deck.Nine, cambio.AbilityPeekOther},
		{deck.Ten, cambio.AbilityPeekOther},
		{deck.Jack, cambio.AbilityBlindSwap},
		{deck.Queen, cambio.AbilityBlindSwap},
		{deck.King, cambio.AbilityPeekSwap},
		{deck.Ace, cambio.AbilityNone},
		{deck.Joker, cambio.AbilityNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cambio.AbilityFor(tc.rank), "rank %s", tc.rank)
	}
}
