package orderbook

import "fmt"

// OrderBook is single-writer and deterministic. Callers serialize
// AddLimitOrder and CancelOrder; read methods may run concurrently with
// each other but not with a writer.
type OrderBook struct {
	symbol string

	bestBid, bestAsk       uint64
	hasBestBid, hasBestAsk bool

	bids  *SideBook
	asks  *SideBook
	index orderIndex

	ids   IDGenerator
	alloc Allocator
}

type Option func(*OrderBook)

// WithIDGenerator replaces the built-in monotonic id counter.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *OrderBook) { b.ids = g }
}

// WithAllocator makes the book draw orders from a and return them there
// once they are matched or cancelled.
func WithAllocator(a Allocator) Option {
	return func(b *OrderBook) { b.alloc = a }
}

type counter struct{ n uint64 }

func (c *counter) Next() uint64 {
	c.n++
	return c.n
}

func New(symbol string, opts ...Option) *OrderBook {
	b := &OrderBook{
		symbol: symbol,
		bids:   newSideBook(Bid),
		asks:   newSideBook(Ask),
		index:  make(orderIndex),
		ids:    &counter{},
		alloc:  heapAllocator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *OrderBook) Symbol() string {
	return b.symbol
}

// Book returns the side book holding resting orders of side s.
func (b *OrderBook) Book(s Side) *SideBook {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// Len returns the number of resting orders.
func (b *OrderBook) Len() int {
	return len(b.index)
}

// ---- commands ----

// AddLimitOrder matches an incoming order against the opposite side under
// price-time priority and rests whatever is left at price.
func (b *OrderBook) AddLimitOrder(side Side, price, qty uint64) (FillResult, error) {
	if !side.Valid() {
		return FillResult{}, ErrInvalidSide
	}
	if price == 0 || qty == 0 {
		return FillResult{}, ErrDegenerateInput
	}

	id := b.ids.Next()
	if _, ok := b.index.lookup(id); ok {
		return FillResult{}, fmt.Errorf("%w: %d", ErrDuplicateOrderID, id)
	}

	res := FillResult{OrderID: id}
	remaining := qty

	opp := b.Book(side.Opposite())
	for remaining > 0 {
		lvl, slot, ok := opp.Best()
		if !ok || !opp.Crosses(lvl.Price, price) {
			break
		}

		matched := b.matchLevel(lvl, &remaining)
		if matched > 0 {
			res.Fills = append(res.Fills, Fill{Quantity: matched, Price: lvl.Price})
		}

		if !lvl.Empty() {
			// Level still has liquidity, so the incoming order is spent.
			break
		}
		opp.release(slot)
	}

	res.Remaining = remaining
	switch {
	case remaining == 0:
		res.Status = Filled
	case len(res.Fills) == 0:
		res.Status = Created
	default:
		res.Status = PartiallyFilled
	}

	if remaining > 0 {
		b.rest(side, id, price, remaining)
	}
	b.refreshBest()

	return res, nil
}

// CancelOrder removes a resting order.
func (b *OrderBook) CancelOrder(id uint64) error {
	e, ok := b.index.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}

	book := b.Book(e.side)
	lvl := book.Level(e.slot)
	o := lvl.Remove(id)
	b.index.remove(id)
	if o != nil {
		b.alloc.Put(o)
	}
	if lvl.Empty() {
		book.release(e.slot)
	}
	b.refreshBest()
	return nil
}

// matchLevel fills the incoming quantity against lvl in FIFO order and
// returns how much traded.
func (b *OrderBook) matchLevel(lvl *PriceLevel, remaining *uint64) uint64 {
	var done uint64
	lvl.Each(func(o *Order) bool {
		q := min(o.Quantity, *remaining)
		o.Quantity -= q
		*remaining -= q
		done += q
		if o.Quantity == 0 {
			b.index.remove(o.ID)
		}
		return *remaining > 0
	})
	lvl.Compact(b.alloc.Put)
	return done
}

func (b *OrderBook) rest(side Side, id, price, qty uint64) {
	book := b.Book(side)
	slot := book.LocateOrCreate(price)

	o := b.alloc.Get()
	*o = Order{ID: id, Quantity: qty}
	book.Level(slot).Append(o)
	b.index.insert(id, side, slot)
}

func (b *OrderBook) refreshBest() {
	b.bestBid, b.hasBestBid = b.bids.BestPrice()
	b.bestAsk, b.hasBestAsk = b.asks.BestPrice()
}

// ---- queries ----

func (b *OrderBook) BestBid() (uint64, bool) {
	return b.bestBid, b.hasBestBid
}

func (b *OrderBook) BestAsk() (uint64, bool) {
	return b.bestAsk, b.hasBestAsk
}

// BBO is the top of book observation.
type BBO struct {
	BidPrice    uint64
	BidQuantity uint64
	AskPrice    uint64
	AskQuantity uint64
	// Spread is (ask - bid) / ask. Negative only if the book is crossed.
	Spread float64
}

// BBO reports best bid and ask with the resting quantity at each. It
// returns false when either side has no liquidity.
func (b *OrderBook) BBO() (BBO, bool) {
	if !b.hasBestBid || !b.hasBestAsk {
		return BBO{}, false
	}
	bid, ok := b.bids.Find(b.bestBid)
	if !ok {
		return BBO{}, false
	}
	ask, ok := b.asks.Find(b.bestAsk)
	if !ok {
		return BBO{}, false
	}

	return BBO{
		BidPrice:    b.bestBid,
		BidQuantity: bid.AggregateQuantity(),
		AskPrice:    b.bestAsk,
		AskQuantity: ask.AggregateQuantity(),
		Spread:      (float64(b.bestAsk) - float64(b.bestBid)) / float64(b.bestAsk),
	}, true
}

// Level is an aggregated view of one price level.
type Level struct {
	Price    uint64
	Quantity uint64
	Orders   int
}

// Depth returns up to n levels per side, best first. n <= 0 means all.
func (b *OrderBook) Depth(n int) (bids, asks []Level) {
	return depth(b.bids, n), depth(b.asks, n)
}

func depth(book *SideBook, n int) []Level {
	var out []Level
	book.Walk(func(lvl *PriceLevel) bool {
		out = append(out, Level{
			Price:    lvl.Price,
			Quantity: lvl.AggregateQuantity(),
			Orders:   lvl.Len(),
		})
		return n <= 0 || len(out) < n
	})
	return out
}

// RestingOrder locates a resting order.
type RestingOrder struct {
	ID       uint64
	Side     Side
	Price    uint64
	Quantity uint64
}

// Lookup returns the resting order with the given id.
func (b *OrderBook) Lookup(id uint64) (RestingOrder, bool) {
	e, ok := b.index.lookup(id)
	if !ok {
		return RestingOrder{}, false
	}
	lvl := b.Book(e.side).Level(e.slot)

	var (
		found RestingOrder
		hit   bool
	)
	lvl.Each(func(o *Order) bool {
		if o.ID != id {
			return true
		}
		found = RestingOrder{ID: id, Side: e.side, Price: lvl.Price, Quantity: o.Quantity}
		hit = true
		return false
	})
	return found, hit
}
