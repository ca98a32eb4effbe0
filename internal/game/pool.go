package game

import (
	"github.com/charmbracelet/log"
)

// CardPool is a finite-supply allocator for card entities. Entities are
// created once and recycled; no card identity is reused while the entity is
// still logically in play. The pool runs entirely on the authority loop, so
// it needs no locking: the refill is "asynchronous" in the sense that it is
// scheduled as a later step on the same loop.
type CardPool struct {
	logger *log.Logger

	available []*Card
	active    map[CardID]*Card
	nextID    CardID

	lowWater    int
	refillBatch int
	refilling   bool
	schedule    func(func())
}

// NewCardPool creates an empty pool. The schedule function posts a step to
// the authority loop; refills run through it so a lease never blocks.
func NewCardPool(logger *log.Logger, lowWater, refillBatch int, schedule func(func())) *CardPool {
	return &CardPool{
		logger:      logger.WithPrefix("pool"),
		active:      make(map[CardID]*Card),
		lowWater:    lowWater,
		refillBatch: refillBatch,
		schedule:    schedule,
	}
}

// Initialize creates totalCount pooled entities. It is idempotent: a pool
// that already holds entities is left untouched.
func (p *CardPool) Initialize(totalCount int) {
	if p.Total() > 0 {
		return
	}
	p.grow(totalCount)
	p.logger.Debug("Pool initialized", "total", p.Total())
}

// Lease moves one entity from pooled to active at the given position.
// Returns ErrPoolExhausted when no entity is available; the caller decides
// whether that is a no-op or a forced skip.
func (p *CardPool) Lease(pos Position) (*Card, error) {
	if len(p.available) == 0 {
		p.maybeRefill()
		return nil, ErrPoolExhausted
	}

	card := p.available[len(p.available)-1]
	p.available = p.available[:len(p.available)-1]
	p.active[card.ID] = card
	card.Pos = pos

	p.maybeRefill()
	return card, nil
}

// Release returns an active entity to the pooled state, clearing its
// in-play location and orientation. Releasing a card that was never leased
// fails with ErrNotActive.
func (p *CardPool) Release(card *Card) error {
	if _, ok := p.active[card.ID]; !ok {
		return ErrNotActive
	}
	delete(p.active, card.ID)

	card.Loc = Location{Kind: LocPooled}
	card.FaceUp = false
	card.Gate().Clear()
	p.available = append(p.available, card)
	return nil
}

// ReleaseAll releases every active entity. Safe to call with zero active
// cards; used on session reset.
func (p *CardPool) ReleaseAll() {
	for _, card := range p.active {
		delete(p.active, card.ID)
		card.Loc = Location{Kind: LocPooled}
		card.FaceUp = false
		card.Gate().Clear()
		p.available = append(p.available, card)
	}
}

// Available returns the number of pooled entities.
func (p *CardPool) Available() int {
	return len(p.available)
}

// Active returns the number of leased entities.
func (p *CardPool) Active() int {
	return len(p.active)
}

// Total returns the total number of entities ever created. It only grows.
func (p *CardPool) Total() int {
	return len(p.available) + len(p.active)
}

// Get returns an active card by id.
func (p *CardPool) Get(id CardID) (*Card, bool) {
	card, ok := p.active[id]
	return card, ok
}

// maybeRefill schedules an asynchronous batch grow when the available count
// drops to or below the low-water mark. Only one refill is in flight at a
// time.
func (p *CardPool) maybeRefill() {
	if p.refillBatch <= 0 || p.schedule == nil {
		return
	}
	if len(p.available) > p.lowWater || p.refilling {
		return
	}
	p.refilling = true
	p.schedule(func() {
		p.grow(p.refillBatch)
		p.refilling = false
		p.logger.Debug("Pool refilled", "batch", p.refillBatch, "total", p.Total())
	})
}

func (p *CardPool) grow(n int) {
	for i := 0; i < n; i++ {
		p.nextID++
		card := &Card{
			ID:  p.nextID,
			Loc: Location{Kind: LocPooled},
		}
		p.available = append(p.available, card)
	}
}
