package orderbook

import "github.com/google/btree"

const priceMapDegree = 32

type priceSlot struct {
	price uint64
	slot  int
}

func lessPrice(a, b priceSlot) bool {
	return a.price < b.price
}

// SideBook holds the price levels of one side. Levels live in a slice and
// are addressed by slot; the price map resolves a price to its slot.
// A slot is recycled only after its level has been emptied and unmapped.
type SideBook struct {
	side   Side
	prices *btree.BTreeG[priceSlot]
	levels []*PriceLevel
	free   []int
}

func newSideBook(side Side) *SideBook {
	return &SideBook{
		side:   side,
		prices: btree.NewG(priceMapDegree, lessPrice),
	}
}

func (b *SideBook) Side() Side {
	return b.side
}

// Crosses reports whether a resting level at levelPrice on this side can
// trade with an incoming order limited at limit.
func (b *SideBook) Crosses(levelPrice, limit uint64) bool {
	if b.side == Ask {
		return levelPrice <= limit
	}
	return levelPrice >= limit
}

// LocateOrCreate returns the slot for price, allocating one if needed.
func (b *SideBook) LocateOrCreate(price uint64) int {
	if ps, ok := b.prices.Get(priceSlot{price: price}); ok {
		return ps.slot
	}

	var slot int
	if n := len(b.free); n > 0 {
		slot = b.free[n-1]
		b.free = b.free[:n-1]
		b.levels[slot].reset(price)
	} else {
		slot = len(b.levels)
		b.levels = append(b.levels, &PriceLevel{Price: price})
	}
	b.prices.ReplaceOrInsert(priceSlot{price: price, slot: slot})
	return slot
}

// Level returns the level stored at slot.
func (b *SideBook) Level(slot int) *PriceLevel {
	return b.levels[slot]
}

// Find returns the level at price, if one is mapped.
func (b *SideBook) Find(price uint64) (*PriceLevel, bool) {
	ps, ok := b.prices.Get(priceSlot{price: price})
	if !ok {
		return nil, false
	}
	return b.levels[ps.slot], true
}

// Best returns the most aggressive non-empty level: highest price for
// bids, lowest for asks.
func (b *SideBook) Best() (*PriceLevel, int, bool) {
	var (
		ps priceSlot
		ok bool
	)
	if b.side == Bid {
		ps, ok = b.prices.Max()
	} else {
		ps, ok = b.prices.Min()
	}
	if !ok {
		return nil, 0, false
	}
	return b.levels[ps.slot], ps.slot, true
}

// BestPrice is Best reduced to its price.
func (b *SideBook) BestPrice() (uint64, bool) {
	lvl, _, ok := b.Best()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// Walk visits levels in priority order until fn returns false.
func (b *SideBook) Walk(fn func(*PriceLevel) bool) {
	visit := func(ps priceSlot) bool {
		return fn(b.levels[ps.slot])
	}
	if b.side == Bid {
		b.prices.Descend(visit)
	} else {
		b.prices.Ascend(visit)
	}
}

// Len returns the number of mapped price levels.
func (b *SideBook) Len() int {
	return b.prices.Len()
}

// release unmaps an empty level and frees its slot.
func (b *SideBook) release(slot int) {
	lvl := b.levels[slot]
	if !lvl.Empty() {
		return
	}
	if _, ok := b.prices.Delete(priceSlot{price: lvl.Price}); !ok {
		return
	}
	b.free = append(b.free, slot)
}
