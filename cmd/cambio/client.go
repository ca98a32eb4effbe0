package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lox/cambio/cmd/cambio/shared"
	"github.com/lox/cambio/internal/client"
	"github.com/lox/cambio/internal/protocol"
)

// ClientCmd connects an interactive human participant to a server.
type ClientCmd struct {
	URL   string `kong:"default='http://localhost:8080',help='Server URL'"`
	Name  string `kong:"default='player',help='Participant name'"`
	Debug bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cl := client.NewClient(c.URL, c.Name, logger)
	ctx := shared.SetupSignalHandler(logger)
	if err := cl.ConnectWithRetry(ctx); err != nil {
		return err
	}
	defer func() { _ = cl.Disconnect() }()

	cl.Subscribe(protocol.TypeTurnStart, func(data []byte) {
		var msg protocol.TurnStart
		if protocol.Unmarshal(data, &msg) == nil {
			if msg.Seat == cl.Replica().SeatID() {
				fmt.Println("--- your turn ---")
				printAffordances(cl)
			} else {
				fmt.Printf("--- %s's turn ---\n", msg.Seat)
			}
		}
	})
	cl.Subscribe(protocol.TypeReveal, func(data []byte) {
		var msg protocol.Reveal
		if protocol.Unmarshal(data, &msg) == nil {
			fmt.Printf("revealed: card %d is %s%s (%d points)\n", msg.Card, msg.Rank, msg.Suit, msg.Points)
		}
	})
	cl.Subscribe(protocol.TypeInterjection, func(data []byte) {
		var msg protocol.Interjection
		if protocol.Unmarshal(data, &msg) == nil {
			outcome := "failed"
			if msg.Correct {
				outcome = "succeeded"
			}
			fmt.Printf("interjection by %s on %s's card %d %s\n", msg.Actor, msg.Victim, msg.Card, outcome)
		}
	})
	cl.Subscribe(protocol.TypeGameEnd, func(data []byte) {
		var msg protocol.GameEnd
		if protocol.Unmarshal(data, &msg) == nil {
			fmt.Printf("game over, winner %s, scores %v\n", msg.Winner, msg.Scores)
		}
	})
	cl.Subscribe(protocol.TypeError, func(data []byte) {
		var msg protocol.Error
		if protocol.Unmarshal(data, &msg) == nil {
			fmt.Printf("declined: %s (%s)\n", msg.Message, msg.Code)
		}
	})

	fmt.Println("commands: start | gates | hand | trigger <entity> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			if err := cl.RequestStart(); err != nil {
				fmt.Println("error:", err)
			}
		case "gates":
			printAffordances(cl)
		case "hand":
			printHand(cl)
		case "trigger":
			if len(fields) != 2 {
				fmt.Println("usage: trigger <entity>")
				continue
			}
			if err := cl.Trigger(fields[1]); err != nil {
				fmt.Println("declined locally:", err)
			}
		case "quit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	return scanner.Err()
}

func printAffordances(cl *client.Client) {
	aff := cl.Replica().Affordances()
	if len(aff) == 0 {
		fmt.Println("nothing to do right now")
		return
	}
	entities := make([]string, 0, len(aff))
	for entity := range aff {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		fmt.Printf("  %-12s %s\n", aff[entity], entity)
	}
}

func printHand(cl *client.Client) {
	snap := cl.Replica().Snapshot()
	for _, seat := range snap.Seats {
		if seat.ID != cl.Replica().SeatID() {
			continue
		}
		for slot, id := range seat.Hand {
			if face, ok := cl.Replica().KnownFace(int(id)); ok {
				fmt.Printf("  slot %d: card %d = %s%s (%d points)\n", slot, id, face.Rank, face.Suit, face.Points)
			} else {
				fmt.Printf("  slot %d: card %d = ?\n", slot, id)
			}
		}
		return
	}
	fmt.Println("not seated")
}
