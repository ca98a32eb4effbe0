// Package protocol defines the wire messages exchanged between the
// authority and participant endpoints. Messages are JSON objects with a
// "type" discriminator; the payloads carry card entity ids and replicated
// gate state, never hidden faces except in targeted reveals.
package protocol

import (
	"github.com/lox/cambio/internal/game"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeHello        = "hello"
	TypeRequestStart = "request_start"
	TypeTrigger      = "trigger_gate"

	// Server -> Client
	TypeHelloAck     = "hello_ack"
	TypeSnapshot     = "snapshot"
	TypeReveal       = "reveal"
	TypeTurnStart    = "turn_start"
	TypeGameStart    = "game_start"
	TypeGameEnd      = "game_end"
	TypeInterjection = "interjection"
	TypeError        = "error"
)

// Error codes carried by Error messages, mirroring the engine's error
// taxonomy so clients can react without string matching.
const (
	CodeOutOfTurn       = "out_of_turn"
	CodeNotAllowed      = "not_allowed"
	CodePoolExhausted   = "pool_exhausted"
	CodeInvalidTransfer = "invalid_transfer"
	CodeBadState        = "bad_state"
	CodeProtocol        = "protocol"
)

// Client -> Server Messages

// Hello is sent by a client when connecting. A reconnecting client sets
// Resume to the credential from its previous HelloAck to reclaim its seat.
type Hello struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Resume string `json:"resume,omitempty"`
}

// RequestStart asks the authority to start a game. Only the first bound
// participant's request succeeds.
type RequestStart struct {
	Type string `json:"type"`
}

// Trigger fires the gate on an entity ("card:<id>", "deck", "seat:<id>").
type Trigger struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
}

// Server -> Client Messages

// HelloAck confirms a seat binding. Resume is the credential the client
// presents in a later Hello to reclaim the seat after a disconnect.
type HelloAck struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	SeatID    string `json:"seat_id"`
	Endpoint  string `json:"endpoint"`
	Rules     string `json:"rules"`
	Resume    string `json:"resume"`
}

// Snapshot replicates the authority's public view after every change
type Snapshot struct {
	Type  string        `json:"type"`
	State game.Snapshot `json:"state"`
}

// Reveal shows a card's face to the receiving endpoint only (or to
// everyone when broadcast at game end).
type Reveal struct {
	Type   string `json:"type"`
	Card   int    `json:"card"`
	Rank   string `json:"rank"`
	Suit   string `json:"suit"`
	Points int    `json:"points"`
}

// TurnStart announces the new turn owner
type TurnStart struct {
	Type string `json:"type"`
	Seat string `json:"seat"`
}

// GameStart announces that dealing finished and play began
type GameStart struct {
	Type  string   `json:"type"`
	Seats []string `json:"seats"`
}

// GameEnd carries final scores and the winner
type GameEnd struct {
	Type   string         `json:"type"`
	Winner string         `json:"winner"`
	Scores map[string]int `json:"scores"`
}

// Interjection reports the outcome of a stacking attempt
type Interjection struct {
	Type    string `json:"type"`
	Actor   string `json:"actor"`
	Victim  string `json:"victim"`
	Card    int    `json:"card"`
	Correct bool   `json:"correct"`
}

// Error reports a declined request
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
