package game

import (
	"fmt"

	"github.com/lox/cambio/internal/deck"
)

// CardID identifies a pooled card entity. It is stable for the entity's
// lifetime and distinct from the entity's rank/suit definition, which is
// assigned when the card is dealt.
type CardID int

// LocationKind partitions where a card entity can be.
type LocationKind int

const (
	LocPooled LocationKind = iota
	LocInHand
	LocOnPile
)

// String returns the string representation of a location kind
func (k LocationKind) String() string {
	switch k {
	case LocPooled:
		return "pooled"
	case LocInHand:
		return "in-hand"
	case LocOnPile:
		return "on-pile"
	default:
		return "?"
	}
}

// Location records where a card entity currently is. Seat is set only for
// LocInHand.
type Location struct {
	Kind LocationKind
	Seat string
}

// Position is the spatial placement the presentation layer animates toward.
// The engine only records it; it never interprets coordinates.
type Position struct {
	X float64
	Y float64
}

// Card is a pooled table entity. Entities are created once by the pool and
// cycle between pooled and in-play; "destruction" is a pool return. The
// Def field is meaningful only while the card is active.
type Card struct {
	ID     CardID
	Def    deck.Card
	FaceUp bool
	Loc    Location
	Pos    Position

	gate Gate
}

// Gate returns the card's interaction gate.
func (c *Card) Gate() *Gate {
	return &c.gate
}

// EntityKey returns the replication key for this card's gate.
func (c *Card) EntityKey() string {
	return fmt.Sprintf("card:%d", c.ID)
}

// String returns a short identity string; the definition is included only
// when the card is face up, so logs never leak hidden information.
func (c *Card) String() string {
	if c.FaceUp {
		return fmt.Sprintf("card:%d(%s)", c.ID, c.Def)
	}
	return fmt.Sprintf("card:%d", c.ID)
}
