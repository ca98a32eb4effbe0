package game

// ActionKind tags an action variant. The engine owns the two kinds that
// drive the interjection sub-phase; the rule module supplies the rest of
// the vocabulary.
type ActionKind string

const (
	// ActionStack attempts to place a matching-rank card onto the pile
	// during an interjection window. TargetSeat is the card's holder,
	// TargetCard the card being stacked.
	ActionStack ActionKind = "stack"

	// ActionGiveCard hands one of the actor's own cards to the victim of a
	// correct interjection. TargetSeat is the receiving seat.
	ActionGiveCard ActionKind = "give_card"
)

// Action is an immutable tagged request produced by a human gate trigger or
// an AI policy call and consumed exactly once by the execution pipeline.
// A zero PrimaryCard or TargetCard slot in a template is unresolved: the
// triggering card's id is substituted when the gate fires.
type Action struct {
	Kind        ActionKind `json:"kind"`
	EndsTurn    bool       `json:"endsTurn"`
	Actor       string     `json:"actor"`
	PrimaryCard CardID     `json:"primaryCard,omitempty"`
	TargetSeat  string     `json:"targetSeat,omitempty"`
	TargetCard  CardID     `json:"targetCard,omitempty"`
}

// resolve fills the template's unresolved card slots with the triggering
// card's id and stamps the acting seat. Slots the template already set pass
// through unchanged.
func (a Action) resolve(actor string, trigger CardID) Action {
	a.Actor = actor
	if a.PrimaryCard == 0 {
		a.PrimaryCard = trigger
	}
	if a.TargetCard == 0 {
		a.TargetCard = trigger
	}
	return a
}
