package orderbook

import "fmt"

type Side uint8

const (
	Bid Side = iota
	Ask
)

// Opposite returns the side an incoming order of s matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Valid reports whether s is Bid or Ask.
func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

// Order is a resting unit of quantity. Its side and price are implied by
// the level that holds it.
type Order struct {
	ID       uint64
	Quantity uint64
}

// Allocator hands out Order values and takes back the ones the book no
// longer references.
type Allocator interface {
	Get() *Order
	Put(*Order)
}

type heapAllocator struct{}

func (heapAllocator) Get() *Order { return new(Order) }
func (heapAllocator) Put(*Order)  {}

// IDGenerator assigns order ids. Implementations must not repeat an id
// while the previous holder is still resting.
type IDGenerator interface {
	Next() uint64
}
