package orderbook

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelSumThreshold is the member count above which AggregateQuantity
// fans out over goroutines.
const parallelSumThreshold = 4096

// PriceLevel is a FIFO queue at a single price.
type PriceLevel struct {
	Price  uint64
	orders []*Order
}

// Append puts o at the back of the queue.
func (p *PriceLevel) Append(o *Order) {
	p.orders = append(p.orders, o)
}

func (p *PriceLevel) Len() int {
	return len(p.orders)
}

func (p *PriceLevel) Empty() bool {
	return len(p.orders) == 0
}

// Each visits members front to back until fn returns false.
func (p *PriceLevel) Each(fn func(*Order) bool) {
	for _, o := range p.orders {
		if !fn(o) {
			return
		}
	}
}

// Compact drops zero-quantity members, keeping the order of the rest.
// Dropped orders are handed to release.
func (p *PriceLevel) Compact(release func(*Order)) {
	kept := p.orders[:0]
	for _, o := range p.orders {
		if o.Quantity == 0 {
			release(o)
			continue
		}
		kept = append(kept, o)
	}
	clear(p.orders[len(kept):])
	p.orders = kept
}

// Remove deletes the member with the given id. Cost is linear in depth.
func (p *PriceLevel) Remove(id uint64) *Order {
	for i, o := range p.orders {
		if o.ID != id {
			continue
		}
		copy(p.orders[i:], p.orders[i+1:])
		p.orders[len(p.orders)-1] = nil
		p.orders = p.orders[:len(p.orders)-1]
		return o
	}
	return nil
}

// AggregateQuantity sums member quantities. It only reads, so it may run
// concurrently with other readers but never with a writer.
func (p *PriceLevel) AggregateQuantity() uint64 {
	if len(p.orders) < parallelSumThreshold {
		return sumQuantity(p.orders)
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(p.orders) + workers - 1) / workers
	partial := make([]uint64, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= len(p.orders) {
			break
		}
		hi := min(lo+chunk, len(p.orders))
		g.Go(func() error {
			partial[w] = sumQuantity(p.orders[lo:hi])
			return nil
		})
	}
	_ = g.Wait()

	var total uint64
	for _, v := range partial {
		total = addSat(total, v)
	}
	return total
}

func sumQuantity(orders []*Order) uint64 {
	var total uint64
	for _, o := range orders {
		total = addSat(total, o.Quantity)
	}
	return total
}

// addSat adds without wrapping.
func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func (p *PriceLevel) reset(price uint64) {
	p.Price = price
	clear(p.orders)
	p.orders = p.orders[:0]
}
