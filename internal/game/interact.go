package game

import (
	"github.com/charmbracelet/log"
)

// InteractionManager is the only way production code sets gates in bulk. It
// fans a gate change out to a set of seats and records, per seat, which
// action kinds that seat is currently bound to. The binding registry is
// rebuilt wholesale on every reset rather than incrementally subscribed and
// unsubscribed, so no stale binding can survive an action commit.
type InteractionManager struct {
	logger *log.Logger

	// seat id -> action kind -> bound template
	bindings map[string]map[ActionKind]Action

	// standalone gates (deck, seat markers) registered for reset, keyed by
	// entity.
	standalone map[string]*Gate

	onChange func()
}

// NewInteractionManager creates an empty manager.
func NewInteractionManager(logger *log.Logger) *InteractionManager {
	return &InteractionManager{
		logger:     logger.WithPrefix("interact"),
		bindings:   make(map[string]map[ActionKind]Action),
		standalone: make(map[string]*Gate),
	}
}

// SetOnChange installs a hook that fires after any bulk gate mutation so
// the transport can republish replicated gate state.
func (m *InteractionManager) SetOnChange(fn func()) {
	m.onChange = fn
}

// RegisterStandalone makes a non-card gate (deck marker, seat marker) known
// to the manager so ResetAll can clear it.
func (m *InteractionManager) RegisterStandalone(entity string, gate *Gate) {
	m.standalone[entity] = gate
}

// StandaloneGate returns a registered non-card gate by entity key.
func (m *InteractionManager) StandaloneGate(entity string) (*Gate, bool) {
	g, ok := m.standalone[entity]
	return g, ok
}

// StandaloneEntities returns the registered non-card gate keys.
func (m *InteractionManager) StandaloneEntities() map[string]*Gate {
	return m.standalone
}

// Bind sets each card's gate for the given seats. With enabled=true it also
// registers a trigger-to-action binding for every seat, so firing the gate
// produces the templated action with the triggering card's id substituted
// into unresolved slots. enabled=false clears the cards' gates instead.
func (m *InteractionManager) Bind(cards []*Card, seats []string, template Action, affordance string, enabled bool) {
	for _, card := range cards {
		if enabled {
			card.Gate().SetAllowed(seats, template, affordance)
		} else {
			card.Gate().Clear()
		}
	}
	if enabled {
		for _, seat := range seats {
			m.bind(seat, template)
		}
	}
	m.logger.Debug("Bound gates",
		"cards", len(cards),
		"seats", len(seats),
		"kind", template.Kind,
		"enabled", enabled)
	m.notify()
}

// BindGate sets a single standalone gate the same way Bind does for cards.
func (m *InteractionManager) BindGate(gate *Gate, seats []string, template Action, affordance string, enabled bool) {
	if enabled {
		gate.SetAllowed(seats, template, affordance)
		for _, seat := range seats {
			m.bind(seat, template)
		}
	} else {
		gate.Clear()
	}
	m.notify()
}

// Bound reports whether the seat currently has a binding for the kind.
// The pipeline uses it to reject requests that outlived a reset.
func (m *InteractionManager) Bound(seatID string, kind ActionKind) bool {
	kinds, ok := m.bindings[seatID]
	if !ok {
		return false
	}
	_, ok = kinds[kind]
	return ok
}

// ResetAll clears every given seat's every hand-card gate plus all
// standalone gates, and rebuilds the binding registry empty. Called
// automatically whenever any action finishes executing, so no stale
// affordance survives into the next decision point.
func (m *InteractionManager) ResetAll(seats []*Seat) {
	for _, seat := range seats {
		for _, card := range seat.Hand.Cards() {
			card.Gate().Clear()
		}
	}
	for _, gate := range m.standalone {
		gate.Clear()
	}
	m.bindings = make(map[string]map[ActionKind]Action)
	m.notify()
}

func (m *InteractionManager) bind(seatID string, template Action) {
	kinds, ok := m.bindings[seatID]
	if !ok {
		kinds = make(map[ActionKind]Action)
		m.bindings[seatID] = kinds
	}
	kinds[template.Kind] = template
}

func (m *InteractionManager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}
