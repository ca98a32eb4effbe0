package client

import (
	"sync"

	"github.com/lox/cambio/internal/game"
	"github.com/lox/cambio/internal/protocol"
)

// RevealedCard is a card face this endpoint has been shown. Reveals are
// remembered until the card disappears from the replicated view, matching
// the seat's server-side memory.
type RevealedCard struct {
	Rank   string
	Suit   string
	Points int
}

// Replica is the observer's mirror of the authority's replicated state:
// the public snapshot, the gate mirrors, and the faces privately revealed
// to this endpoint. It is read by the presentation layer and by the
// local-first trigger check.
type Replica struct {
	mu sync.RWMutex

	sessionID string
	seatID    string
	snap      game.Snapshot
	revealed  map[int]RevealedCard
}

// NewReplica creates an empty replica.
func NewReplica() *Replica {
	return &Replica{revealed: make(map[int]RevealedCard)}
}

// SetIdentity records the seat binding from the hello acknowledgement.
func (r *Replica) SetIdentity(sessionID, seatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.seatID = seatID
}

// SeatID returns this endpoint's seat id.
func (r *Replica) SeatID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seatID
}

// ApplySnapshot replaces the replicated view and drops remembered faces
// for cards no longer in any hand.
func (r *Replica) ApplySnapshot(snap game.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap

	held := make(map[int]struct{})
	for _, seat := range snap.Seats {
		for _, id := range seat.Hand {
			held[int(id)] = struct{}{}
		}
	}
	if snap.DrawnCard != 0 {
		held[int(snap.DrawnCard)] = struct{}{}
	}
	for id := range r.revealed {
		if _, ok := held[id]; !ok {
			delete(r.revealed, id)
		}
	}
}

// ApplyReveal remembers a card face shown to this endpoint.
func (r *Replica) ApplyReveal(msg protocol.Reveal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed[msg.Card] = RevealedCard{Rank: msg.Rank, Suit: msg.Suit, Points: msg.Points}
}

// Snapshot returns the current replicated view.
func (r *Replica) Snapshot() game.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// KnownFace returns the remembered face of a card, if this endpoint has
// seen it.
func (r *Replica) KnownFace(card int) (RevealedCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	face, ok := r.revealed[card]
	return face, ok
}

// CanTrigger reports whether the local gate mirror allows this seat to
// fire the entity. The authority still revalidates; this only lets the
// client decline locally without a round trip.
func (r *Replica) CanTrigger(entity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, gate := range r.snap.Gates {
		if gate.Entity != entity {
			continue
		}
		for _, seat := range gate.Allowed {
			if seat == r.seatID {
				return true
			}
		}
	}
	return false
}

// Affordances returns the entities this seat may currently trigger, with
// their affordance labels.
func (r *Replica) Affordances() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string)
	for _, gate := range r.snap.Gates {
		for _, seat := range gate.Allowed {
			if seat == r.seatID {
				out[gate.Entity] = gate.Affordance
				break
			}
		}
	}
	return out
}

// IsMyTurn reports whether this seat owns the current turn.
func (r *Replica) IsMyTurn() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seatID != "" && r.snap.TurnOwner == r.seatID
}
