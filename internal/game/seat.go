package game

import (
	"github.com/lox/cambio/internal/ident"
)

// Seat is a turn-taking slot at the table. Its identity is stable for the
// session and survives reconnects: the seat id is not the transport
// connection id. Seats are owned exclusively by the Session and mutated
// only on the authority loop.
type Seat struct {
	ID string

	// Endpoint is the bound participant's transport endpoint id, empty when
	// unbound.
	Endpoint string

	// ResumeToken is the credential a reconnecting endpoint presents to
	// reclaim this seat. Minted once per seat and shared only with the
	// bound participant, never replicated.
	ResumeToken string

	// IsComputerControlled seats act through the session's policy instead
	// of a remote endpoint.
	IsComputerControlled bool

	Hand Hand

	// HasFinished marks a seat that played its locking action (or lost its
	// endpoint) and is coasting to game end. The turn scheduler skips it;
	// interjection windows still include it.
	HasFinished bool

	// IsTurnActive mirrors whether this seat currently owns the turn.
	IsTurnActive bool

	// droppedOut records that HasFinished was forced by a disconnect
	// rather than the seat's own play. A resumed seat re-enters the
	// rotation; a seat locked by its own action stays finished.
	droppedOut bool

	// seen is the seat's visibility-limited memory of cards it has
	// knowingly observed. Filtered whenever the hand changes: a card
	// leaving the hand it was seen in is pruned.
	seen map[CardID]struct{}

	// marker carries the seat's own standalone gate (locking-action
	// affordance and similar non-card triggers).
	marker Gate
}

// NewSeat creates an unbound seat with a fresh random identity.
func NewSeat(gen *ident.Generator) *Seat {
	return &Seat{
		ID:          gen.SeatID(),
		ResumeToken: gen.Token(),
		seen:        make(map[CardID]struct{}),
	}
}

// Bind attaches a participant endpoint to the seat.
func (s *Seat) Bind(endpoint string) {
	s.Endpoint = endpoint
	s.IsComputerControlled = false
}

// Unbind detaches the seat's endpoint.
func (s *Seat) Unbind() {
	s.Endpoint = ""
}

// IsBound reports whether a live participant endpoint is attached.
func (s *Seat) IsBound() bool {
	return s.Endpoint != ""
}

// MarkerGate returns the seat's standalone gate.
func (s *Seat) MarkerGate() *Gate {
	return &s.marker
}

// EntityKey returns the replication key for the seat's marker gate.
func (s *Seat) EntityKey() string {
	return "seat:" + s.ID
}

// MarkSeen records that the seat knowingly observed a card. Only cards in
// some hand are worth remembering; the memory is pruned as hands change.
func (s *Seat) MarkSeen(id CardID) {
	s.seen[id] = struct{}{}
}

// HasSeen reports whether the seat remembers observing the card.
func (s *Seat) HasSeen(id CardID) bool {
	_, ok := s.seen[id]
	return ok
}

// SeenCount returns the size of the seat's card memory.
func (s *Seat) SeenCount() int {
	return len(s.seen)
}

// PruneSeen drops memory of any card no longer present in a hand the seat
// can still reason about. stillHeld reports whether the card remains in
// play in some hand.
func (s *Seat) PruneSeen(stillHeld func(CardID) bool) {
	for id := range s.seen {
		if !stillHeld(id) {
			delete(s.seen, id)
		}
	}
}

// ForgetSeen drops memory of a single card.
func (s *Seat) ForgetSeen(id CardID) {
	delete(s.seen, id)
}

// Reset clears per-game seat state while preserving identity and binding.
func (s *Seat) Reset() {
	s.Hand.Clear()
	s.seen = make(map[CardID]struct{})
	s.HasFinished = false
	s.IsTurnActive = false
	s.droppedOut = false
	s.marker.Clear()
}
