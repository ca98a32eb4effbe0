package deck

import "fmt"

// Suit represents a card suit. Jokers carry one of the two joker suits.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
	RedJoker
	BlackJoker
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case RedJoker:
		return "r"
	case BlackJoker:
		return "b"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts, Diamonds or the red joker)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds || s == RedJoker
}

// Rank represents a card rank
type Rank int

const (
	Joker Rank = iota + 1
	Ace
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Joker:
		return "O"
	case Ace:
		return "A"
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return "?"
	}
}

// Card is an immutable rank/suit definition. It is not a table entity: the
// engine leases pooled card entities that reference one of these definitions.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card definition
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	if c.Rank == Joker {
		return fmt.Sprintf("Joker(%s)", c.Suit)
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// IsJoker returns true if the card is one of the two jokers
func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

// Points returns the card's score contribution. Aces count one, pip cards
// their face value, ten through king ten to thirteen. The two exceptions
// keep the game interesting: jokers are worth zero and the red kings minus
// one.
func (c Card) Points() int {
	if c.Rank == King && (c.Suit == Hearts || c.Suit == Diamonds) {
		return -1
	}
	if c.Rank == Joker {
		return 0
	}
	return int(c.Rank) - 1
}
