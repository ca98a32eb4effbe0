package game

// Gate is the per-entity access-control primitive: who may trigger the
// entity, what templated action firing it produces, and what affordance
// text to show. The authority owns every gate; observers hold read-only
// mirrors so a trigger can be declined locally without a round trip.
type Gate struct {
	allowed    map[string]struct{}
	template   Action
	affordance string
	enabled    bool
}

// SetAllowed replaces the gate's allowed seat set atomically; there is no
// merge with the prior set.
func (g *Gate) SetAllowed(seats []string, template Action, affordance string) {
	g.allowed = make(map[string]struct{}, len(seats))
	for _, s := range seats {
		g.allowed[s] = struct{}{}
	}
	g.template = template
	g.affordance = affordance
	g.enabled = len(seats) > 0
}

// Clear disables the gate and empties its allowed set.
func (g *Gate) Clear() {
	g.allowed = nil
	g.template = Action{}
	g.affordance = ""
	g.enabled = false
}

// Allows reports whether the seat may trigger this gate.
func (g *Gate) Allows(seatID string) bool {
	if !g.enabled {
		return false
	}
	_, ok := g.allowed[seatID]
	return ok
}

// Enabled reports whether anyone may trigger the gate.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Template returns the bound action template.
func (g *Gate) Template() Action {
	return g.template
}

// Affordance returns the gate's affordance text.
func (g *Gate) Affordance() string {
	return g.affordance
}

// AllowedSeats returns the allowed seat ids.
func (g *Gate) AllowedSeats() []string {
	out := make([]string, 0, len(g.allowed))
	for s := range g.allowed {
		out = append(out, s)
	}
	return out
}

// Trigger validates a trigger request and returns the resolved action for
// the pipeline. It fails with ErrNotAllowed when the seat is not in the
// allowed set or the gate is disabled; the failure changes no state.
func (g *Gate) Trigger(seatID string, trigger CardID) (Action, error) {
	if !g.Allows(seatID) {
		return Action{}, ErrNotAllowed
	}
	return g.template.resolve(seatID, trigger), nil
}
