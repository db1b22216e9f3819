package sequence

import "sync/atomic"

// Sequencer issues strictly increasing ids starting after a base value.
// It backs order ids in the book and event sequence numbers in the
// outbox, and is safe for concurrent use.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued id, or the base if none was issued.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Advance moves the sequencer forward to at least v. It never moves
// backwards, so ids already handed out stay unique.
func (s *Sequencer) Advance(v uint64) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
