package game

import (
	"github.com/lox/cambio/internal/deck"
)

// Snapshot is the authority's replicated view of the table: public card
// placement, seat roster, and enabled gates. Faces are never included
// except the pile top, which is public; private reveals travel as events
// targeted at specific endpoints.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	Rules     string         `json:"rules"`
	State     string         `json:"state"`
	TurnOwner string         `json:"turn_owner,omitempty"`
	Seats     []SeatSnapshot `json:"seats"`
	PileTop   *PileCard      `json:"pile_top,omitempty"`
	PileSize  int            `json:"pile_size"`
	StockSize int            `json:"stock_size"`
	DrawnCard CardID         `json:"drawn_card,omitempty"`
	Gates     []GateSnapshot `json:"gates,omitempty"`
}

// SeatSnapshot is one seat's public state. Hand lists card ids in slot
// order; the faces stay hidden.
type SeatSnapshot struct {
	ID         string   `json:"id"`
	Endpoint   string   `json:"endpoint,omitempty"`
	Computer   bool     `json:"computer,omitempty"`
	Finished   bool     `json:"finished,omitempty"`
	TurnActive bool     `json:"turn_active,omitempty"`
	Hand       []CardID `json:"hand"`
}

// PileCard is the face-up pile top.
type PileCard struct {
	ID   CardID    `json:"id"`
	Card deck.Card `json:"card"`
}

// GateSnapshot mirrors one enabled gate so observers can render
// affordances and decline triggers locally.
type GateSnapshot struct {
	Entity     string     `json:"entity"`
	Allowed    []string   `json:"allowed"`
	Kind       ActionKind `json:"kind"`
	Affordance string     `json:"affordance,omitempty"`
}

// SnapshotView returns the replicated view directly, without posting onto
// the loop. Only callers already running on the authority loop (event
// subscribers, rule modules) may use it; everyone else goes through
// Snapshot.
func (s *Session) SnapshotView() Snapshot {
	return s.snapshotLocked()
}

// snapshotLocked builds the replicated view. Authority loop only.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Rules:     s.rules.Name(),
		State:     s.state.String(),
		TurnOwner: s.turnOwner,
		PileSize:  len(s.pile),
		StockSize: len(s.stock),
	}
	if s.drawnCard != nil {
		snap.DrawnCard = s.drawnCard.ID
	}
	if top := s.PileTop(); top != nil {
		snap.PileTop = &PileCard{ID: top.ID, Card: top.Def}
	}

	for _, seat := range s.seats {
		ss := SeatSnapshot{
			ID:         seat.ID,
			Endpoint:   seat.Endpoint,
			Computer:   seat.IsComputerControlled,
			Finished:   seat.HasFinished,
			TurnActive: seat.IsTurnActive,
			Hand:       make([]CardID, 0, seat.Hand.Len()),
		}
		for _, card := range seat.Hand.Cards() {
			ss.Hand = append(ss.Hand, card.ID)
		}
		snap.Seats = append(snap.Seats, ss)

		for _, card := range seat.Hand.Cards() {
			if g := card.Gate(); g.Enabled() {
				snap.Gates = append(snap.Gates, GateSnapshot{
					Entity:     card.EntityKey(),
					Allowed:    g.AllowedSeats(),
					Kind:       g.Template().Kind,
					Affordance: g.Affordance(),
				})
			}
		}
	}

	for entity, g := range s.interact.StandaloneEntities() {
		if g.Enabled() {
			snap.Gates = append(snap.Gates, GateSnapshot{
				Entity:     entity,
				Allowed:    g.AllowedSeats(),
				Kind:       g.Template().Kind,
				Affordance: g.Affordance(),
			})
		}
	}
	return snap
}
