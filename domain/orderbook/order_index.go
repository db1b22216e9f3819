package orderbook

type indexEntry struct {
	side Side
	slot int
}

// orderIndex maps every resting order id to the side and slot holding it.
type orderIndex map[uint64]indexEntry

func (x orderIndex) insert(id uint64, side Side, slot int) {
	x[id] = indexEntry{side: side, slot: slot}
}

func (x orderIndex) remove(id uint64) {
	delete(x, id)
}

func (x orderIndex) lookup(id uint64) (indexEntry, bool) {
	e, ok := x[id]
	return e, ok
}
