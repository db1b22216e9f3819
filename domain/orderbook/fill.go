package orderbook

import (
	"fmt"
	"math"
	"math/bits"
)

type Status uint8

const (
	// Created: nothing matched, the whole order is resting.
	Created Status = iota + 1
	// PartiallyFilled: some quantity matched, the remainder is resting.
	PartiallyFilled
	// Filled: fully matched, nothing resting.
	Filled
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Fill is the quantity matched at one price level.
type Fill struct {
	Quantity uint64
	Price    uint64
}

// FillResult describes what happened to one incoming limit order.
// Fills are in level-visitation order, one entry per level.
type FillResult struct {
	OrderID   uint64
	Fills     []Fill
	Remaining uint64
	Status    Status
}

// Filled returns the total matched quantity.
func (r FillResult) Filled() uint64 {
	var q uint64
	for _, f := range r.Fills {
		q += f.Quantity
	}
	return q
}

// AveragePrice is the quantity-weighted mean fill price.
func (r FillResult) AveragePrice() (float64, error) {
	if len(r.Fills) == 0 {
		return 0, ErrEmptyFillAverage
	}

	// notional is accumulated in 128 bits, q*p alone can exceed 64.
	var hi, lo, qty uint64
	for _, f := range r.Fills {
		h, l := bits.Mul64(f.Quantity, f.Price)
		var carry uint64
		lo, carry = bits.Add64(lo, l, 0)
		hi, _ = bits.Add64(hi, h, carry)
		qty += f.Quantity
	}
	if qty == 0 {
		return 0, ErrEmptyFillAverage
	}

	notional := float64(hi)*math.Exp2(64) + float64(lo)
	return notional / float64(qty), nil
}
