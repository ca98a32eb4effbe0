package game

import (
	"time"

	"github.com/lox/cambio/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for engine domain events. Presentation collaborators
// (animation, audio, UI) subscribe to these; they never mutate engine state.
const (
	EventTypeStateChanged   EventType = "state_changed"
	EventTypeGameStarted    EventType = "game_started"
	EventTypeGameEnded      EventType = "game_ended"
	EventTypeTurnStarted    EventType = "turn_started"
	EventTypeTurnEnded      EventType = "turn_ended"
	EventTypeActionExecuted EventType = "action_executed"
	EventTypeCardMoved      EventType = "card_moved"
	EventTypeCardRevealed   EventType = "card_revealed"
	EventTypeGatesChanged   EventType = "gates_changed"
	EventTypeInterjection   EventType = "interjection"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents any event emitted by the session engine
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// StateChangedEvent is published on every session lifecycle transition
type StateChangedEvent struct {
	From      State
	To        State
	timestamp time.Time
}

func (e StateChangedEvent) EventType() EventType { return EventTypeStateChanged }
func (e StateChangedEvent) Timestamp() time.Time { return e.timestamp }

// GameStartedEvent is published when dealing completes and play begins
type GameStartedEvent struct {
	SessionID string
	Seats     []string
	timestamp time.Time
}

func (e GameStartedEvent) EventType() EventType { return EventTypeGameStarted }
func (e GameStartedEvent) Timestamp() time.Time { return e.timestamp }

// GameEndedEvent carries final scores and the winning seat
type GameEndedEvent struct {
	SessionID string
	Scores    map[string]int
	Winner    string
	timestamp time.Time
}

func (e GameEndedEvent) EventType() EventType { return EventTypeGameEnded }
func (e GameEndedEvent) Timestamp() time.Time { return e.timestamp }

// TurnStartedEvent is published when a seat becomes the turn owner
type TurnStartedEvent struct {
	Seat      string
	Endpoint  string
	timestamp time.Time
}

func (e TurnStartedEvent) EventType() EventType { return EventTypeTurnStarted }
func (e TurnStartedEvent) Timestamp() time.Time { return e.timestamp }

// TurnEndedEvent is published when a seat ceases to own the turn
type TurnEndedEvent struct {
	Seat      string
	timestamp time.Time
}

func (e TurnEndedEvent) EventType() EventType { return EventTypeTurnEnded }
func (e TurnEndedEvent) Timestamp() time.Time { return e.timestamp }

// ActionExecutedEvent is published after the pipeline commits an action
type ActionExecutedEvent struct {
	Action    Action
	timestamp time.Time
}

func (e ActionExecutedEvent) EventType() EventType { return EventTypeActionExecuted }
func (e ActionExecutedEvent) Timestamp() time.Time { return e.timestamp }

// CardMovedEvent is published when a card entity changes location
type CardMovedEvent struct {
	Card      CardID
	From      Location
	To        Location
	Pos       Position
	timestamp time.Time
}

func (e CardMovedEvent) EventType() EventType { return EventTypeCardMoved }
func (e CardMovedEvent) Timestamp() time.Time { return e.timestamp }

// CardRevealedEvent is published when a card's face is shown to one or
// more seats. ToSeats empty means revealed to everyone.
type CardRevealedEvent struct {
	Card      CardID
	Def       deck.Card
	ToSeats   []string
	timestamp time.Time
}

func (e CardRevealedEvent) EventType() EventType { return EventTypeCardRevealed }
func (e CardRevealedEvent) Timestamp() time.Time { return e.timestamp }

// GatesChangedEvent signals that replicated gate state must be republished
type GatesChangedEvent struct {
	timestamp time.Time
}

func (e GatesChangedEvent) EventType() EventType { return EventTypeGatesChanged }
func (e GatesChangedEvent) Timestamp() time.Time { return e.timestamp }

// InterjectionEvent reports the outcome of a stacking attempt
type InterjectionEvent struct {
	Actor     string
	Victim    string
	Card      CardID
	Correct   bool
	timestamp time.Time
}

func (e InterjectionEvent) EventType() EventType { return EventTypeInterjection }
func (e InterjectionEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
