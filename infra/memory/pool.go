package memory

import (
	"sync"

	"tickbook/domain/orderbook"
)

// Pool is a typed wrapper around sync.Pool. reset, if set, runs on every
// value handed back so stale state never leaks to the next Get.
type Pool[T any] struct {
	p     *sync.Pool
	reset func(*T)
}

func NewPool[T any](ctor func() *T, reset func(*T)) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// OrderPool satisfies orderbook.Allocator.
type OrderPool struct {
	*Pool[orderbook.Order]
}

func NewOrderPool() OrderPool {
	return OrderPool{NewPool(
		func() *orderbook.Order { return &orderbook.Order{} },
		func(o *orderbook.Order) { *o = orderbook.Order{} },
	)}
}

var _ orderbook.Allocator = OrderPool{}
