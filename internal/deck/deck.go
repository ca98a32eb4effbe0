package deck

// Size is the number of card definitions in a full deck: the standard 52
// plus two jokers.
const Size = 54

// Definitions returns the full 54-card composition in a fixed, deterministic
// order. Callers that need a shuffled deck shuffle the result themselves
// with an injected random source.
func Definitions() []Card {
	cards := make([]Card, 0, Size)
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	cards = append(cards, NewCard(RedJoker, Joker), NewCard(BlackJoker, Joker))
	return cards
}
