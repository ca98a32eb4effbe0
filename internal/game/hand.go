package game

import "fmt"

// Hand is an ordered collection of card references with unique entries.
// Position encodes the game-visible slot ("first card", "third card"), so
// insertion order is significant. A card belonging to at most one hand or
// the pile at a time is a pipeline invariant, not enforced here.
type Hand struct {
	cards []*Card
}

// Add appends a card to the end of the hand.
func (h *Hand) Add(card *Card) error {
	return h.InsertAt(len(h.cards), card)
}

// InsertAt inserts a card at the given slot, shifting later cards right.
// Duplicate entries and out-of-range slots are rejected.
func (h *Hand) InsertAt(index int, card *Card) error {
	if h.Contains(card.ID) {
		return fmt.Errorf("%w: %s already in hand", ErrInvalidTransfer, card)
	}
	if index < 0 || index > len(h.cards) {
		return fmt.Errorf("%w: slot %d out of range (hand size %d)", ErrInvalidTransfer, index, len(h.cards))
	}
	h.cards = append(h.cards, nil)
	copy(h.cards[index+1:], h.cards[index:])
	h.cards[index] = card
	return nil
}

// Remove removes a card, returning the slot it occupied.
func (h *Hand) Remove(id CardID) (int, error) {
	for i, c := range h.cards {
		if c.ID == id {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: card %d not in hand", ErrInvalidTransfer, id)
}

// IndexOf returns the slot a card occupies, or -1.
func (h *Hand) IndexOf(id CardID) int {
	for i, c := range h.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CardAt returns the card at the given slot.
func (h *Hand) CardAt(index int) (*Card, bool) {
	if index < 0 || index >= len(h.cards) {
		return nil, false
	}
	return h.cards[index], true
}

// Contains reports whether the hand holds the card.
func (h *Hand) Contains(id CardID) bool {
	return h.IndexOf(id) >= 0
}

// Cards returns the hand's cards in slot order. The slice is a copy.
func (h *Hand) Cards() []*Card {
	out := make([]*Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards held.
func (h *Hand) Len() int {
	return len(h.cards)
}

// Clear removes every card.
func (h *Hand) Clear() {
	h.cards = h.cards[:0]
}
