package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/lox/cambio/cmd/cambio/shared"
	"github.com/lox/cambio/internal/client"
	"github.com/lox/cambio/internal/game"
	"github.com/lox/cambio/internal/protocol"
)

// callThreshold is the known-points total at or below which the bot calls
// cambio once it has seen its whole hand.
const callThreshold = 6

// BotCmd connects a computer player over the wire, exercising the same
// replicated-state protocol a human client uses. It reasons only from the
// replica: public snapshot plus faces revealed to its own seat.
type BotCmd struct {
	URL     string `kong:"default='http://localhost:8080',help='Server URL'"`
	Name    string `kong:"default='bot',help='Bot name'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	DelayMs int    `kong:"default='500',help='Delay before acting on a decision point'"`
	Start   bool   `kong:"help='Request a game start once connected'"`
}

func (c *BotCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cl := client.NewClient(c.URL, c.Name, logger)
	ctx := shared.SetupSignalHandler(logger)
	if err := cl.ConnectWithRetry(ctx); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	delay := time.Duration(c.DelayMs) * time.Millisecond
	decisions := make(chan struct{}, 1)

	// Coalesce snapshot bursts into a single pending decision.
	cl.Subscribe(protocol.TypeSnapshot, func([]byte) {
		select {
		case decisions <- struct{}{}:
		default:
		}
	})

	if c.Start {
		time.Sleep(delay)
		if err := cl.RequestStart(); err != nil {
			logger.Warn("Start request failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-decisions:
			time.Sleep(delay)
			act(cl)
		}
	}
}

// act fires at most one trigger per decision point, picked by affordance
// priority. The authority only offers legal moves, so a declined trigger
// just means the decision point moved on.
func act(cl *client.Client) {
	replica := cl.Replica()
	aff := replica.Affordances()
	if len(aff) == 0 {
		return
	}
	snap := replica.Snapshot()

	byLabel := make(map[string][]string)
	for entity, label := range aff {
		byLabel[label] = append(byLabel[label], entity)
	}

	// Stacking: only on a card whose face we know matches the pile top.
	if entities, ok := byLabel["stack"]; ok {
		if snap.PileTop != nil {
			topRank := snap.PileTop.Card.Rank.String()
			for _, entity := range entities {
				if face, known := replica.KnownFace(entityCardID(entity)); known && face.Rank == topRank {
					_ = cl.Trigger(entity)
					return
				}
			}
		}
		if len(byLabel) == 1 {
			return
		}
	}

	if entities, ok := byLabel["call cambio"]; ok && shouldCall(replica, snap) {
		_ = cl.Trigger(entities[0])
		return
	}

	for _, label := range []string{"give", "discard", "peek", "pick theirs", "pick mine", "draw", "skip"} {
		if entities, ok := byLabel[label]; ok {
			_ = cl.Trigger(entities[0])
			return
		}
	}
}

// shouldCall is true when every card in the bot's hand has a known face
// and the total is at or below the call threshold.
func shouldCall(replica *client.Replica, snap game.Snapshot) bool {
	for _, seat := range snap.Seats {
		if seat.ID != replica.SeatID() {
			continue
		}
		total := 0
		for _, id := range seat.Hand {
			face, ok := replica.KnownFace(int(id))
			if !ok {
				return false
			}
			total += face.Points
		}
		return total <= callThreshold
	}
	return false
}

func entityCardID(entity string) int {
	raw, ok := strings.CutPrefix(entity, "card:")
	if !ok {
		return 0
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return id
}
