package server

import (
	"github.com/charmbracelet/log"

	"github.com/lox/cambio/internal/game"
	"github.com/lox/cambio/internal/protocol"
)

// SessionService connects the authority engine to the transport: inbound
// requests are posted onto the authority loop, and engine events fan out
// to connected endpoints as protocol messages. It subscribes to the
// session bus, so OnEvent always runs on the authority loop and may read
// engine state directly.
type SessionService struct {
	logger  *log.Logger
	session *game.Session
	server  *Server
}

// NewSessionService wires a session to a server and subscribes to the
// session's events. Call before the session starts running.
func NewSessionService(logger *log.Logger, session *game.Session, srv *Server) *SessionService {
	s := &SessionService{
		logger:  logger.WithPrefix("service"),
		session: session,
		server:  srv,
	}
	session.Bus().Subscribe(s)
	srv.SetService(s)
	return s
}

// Hello binds the endpoint to a seat and returns the acknowledgement. A
// non-empty resume credential reclaims the seat it was issued for instead
// of taking a fresh one.
func (s *SessionService) Hello(endpoint, name, resume string) (protocol.HelloAck, error) {
	var seatID string
	var err error
	if resume != "" {
		seatID, err = s.session.ResumeSeat(endpoint, resume)
	} else {
		seatID, resume, err = s.session.BindSeat(endpoint)
	}
	if err != nil {
		return protocol.HelloAck{}, err
	}
	s.logger.Info("Endpoint seated", "endpoint", endpoint, "name", name, "seat", seatID)
	return protocol.HelloAck{
		Type:      protocol.TypeHelloAck,
		SessionID: s.session.ID(),
		SeatID:    seatID,
		Endpoint:  endpoint,
		Rules:     s.session.Snapshot().Rules,
		Resume:    resume,
	}, nil
}

// RequestStart forwards a start request to the engine.
func (s *SessionService) RequestStart(endpoint string) error {
	return s.session.RequestStart(endpoint)
}

// Trigger forwards a gate trigger to the engine.
func (s *SessionService) Trigger(endpoint, entity string) error {
	return s.session.HandleTrigger(endpoint, entity)
}

// EndpointGone unbinds a disconnected endpoint's seat.
func (s *SessionService) EndpointGone(endpoint string) {
	s.session.UnbindEndpoint(endpoint)
}

// SnapshotMessage builds a snapshot message for a newly seated endpoint.
func (s *SessionService) SnapshotMessage() protocol.Snapshot {
	return protocol.Snapshot{Type: protocol.TypeSnapshot, State: s.session.Snapshot()}
}

// OnEvent implements game.EventSubscriber. It runs on the authority loop:
// engine accessors are safe here, and sends never block.
func (s *SessionService) OnEvent(event game.GameEvent) {
	switch e := event.(type) {
	case game.StateChangedEvent, game.GatesChangedEvent, game.CardMovedEvent:
		s.broadcastSnapshot()

	case game.TurnStartedEvent:
		s.server.Broadcast(protocol.TurnStart{Type: protocol.TypeTurnStart, Seat: e.Seat})
		s.broadcastSnapshot()

	case game.GameStartedEvent:
		s.server.Broadcast(protocol.GameStart{Type: protocol.TypeGameStart, Seats: e.Seats})

	case game.GameEndedEvent:
		s.server.Broadcast(protocol.GameEnd{Type: protocol.TypeGameEnd, Winner: e.Winner, Scores: e.Scores})

	case game.InterjectionEvent:
		s.server.Broadcast(protocol.Interjection{
			Type:    protocol.TypeInterjection,
			Actor:   e.Actor,
			Victim:  e.Victim,
			Card:    int(e.Card),
			Correct: e.Correct,
		})

	case game.CardRevealedEvent:
		s.sendReveal(e)
	}
}

// sendReveal delivers a card face to the revealed seats only, or to
// everyone for public reveals.
func (s *SessionService) sendReveal(e game.CardRevealedEvent) {
	msg := protocol.Reveal{
		Type:   protocol.TypeReveal,
		Card:   int(e.Card),
		Rank:   e.Def.Rank.String(),
		Suit:   e.Def.Suit.String(),
		Points: e.Def.Points(),
	}
	if len(e.ToSeats) == 0 {
		s.server.Broadcast(msg)
		return
	}
	for _, seatID := range e.ToSeats {
		seat := s.session.SeatByID(seatID)
		if seat == nil || !seat.IsBound() {
			continue
		}
		if err := s.server.SendToEndpoint(seat.Endpoint, msg); err != nil {
			s.logger.Debug("Reveal not delivered", "seat", seatID, "error", err)
		}
	}
}

func (s *SessionService) broadcastSnapshot() {
	s.server.Broadcast(protocol.Snapshot{
		Type:  protocol.TypeSnapshot,
		State: s.session.SnapshotView(),
	})
}
