package orderbook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelIDs(p *PriceLevel) []uint64 {
	var ids []uint64
	p.Each(func(o *Order) bool {
		ids = append(ids, o.ID)
		return true
	})
	return ids
}

func TestPriceLevelFIFO(t *testing.T) {
	var p PriceLevel
	for id := uint64(1); id <= 3; id++ {
		p.Append(&Order{ID: id, Quantity: id * 10})
	}

	assert.Equal(t, []uint64{1, 2, 3}, levelIDs(&p))
	assert.Equal(t, uint64(60), p.AggregateQuantity())
}

func TestPriceLevelCompact(t *testing.T) {
	var p PriceLevel
	p.Append(&Order{ID: 1})
	p.Append(&Order{ID: 2, Quantity: 5})
	p.Append(&Order{ID: 3})
	p.Append(&Order{ID: 4, Quantity: 1})

	var released []uint64
	p.Compact(func(o *Order) { released = append(released, o.ID) })

	assert.Equal(t, []uint64{2, 4}, levelIDs(&p))
	assert.Equal(t, []uint64{1, 3}, released)
}

func TestPriceLevelRemove(t *testing.T) {
	var p PriceLevel
	p.Append(&Order{ID: 1, Quantity: 1})
	p.Append(&Order{ID: 2, Quantity: 1})

	o := p.Remove(1)
	require.NotNil(t, o)
	assert.Equal(t, uint64(1), o.ID)
	assert.Nil(t, p.Remove(1))
	assert.Equal(t, []uint64{2}, levelIDs(&p))

	p.Remove(2)
	assert.True(t, p.Empty())
}

func TestAggregateQuantityParallel(t *testing.T) {
	var p PriceLevel
	n := parallelSumThreshold*3 + 17
	for i := 0; i < n; i++ {
		p.Append(&Order{ID: uint64(i), Quantity: 2})
	}
	assert.Equal(t, uint64(2*n), p.AggregateQuantity())
}

func TestAggregateQuantitySaturates(t *testing.T) {
	var p PriceLevel
	p.Append(&Order{ID: 1, Quantity: math.MaxUint64})
	p.Append(&Order{ID: 2, Quantity: 1})
	assert.Equal(t, uint64(math.MaxUint64), p.AggregateQuantity())
}
