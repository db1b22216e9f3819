package service

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tickbook/domain/events"
	"tickbook/domain/orderbook"
)

// EventSink receives the events of one command as a batch.
// *outbox.Outbox implements it.
type EventSink interface {
	Append([]events.Event) ([]events.Event, error)
}

type discardSink struct{}

func (discardSink) Append(evs []events.Event) ([]events.Event, error) { return evs, nil }

/*
Engine is the single owner of an OrderBook.

Commands take the write lock, queries the read lock, so BBO and depth
reads may run alongside each other but never alongside matching.
*/
type Engine struct {
	mu   sync.RWMutex
	book *orderbook.OrderBook
	log  *logrus.Entry
	sink EventSink
	now  func() time.Time

	lastQuote *events.Quote
}

// NewEngine wires the book to its logger and sink. A nil sink discards
// events.
func NewEngine(book *orderbook.OrderBook, logger *logrus.Logger, sink EventSink) *Engine {
	if sink == nil {
		sink = discardSink{}
	}
	return &Engine{
		book: book,
		log:  logger.WithField("symbol", book.Symbol()),
		sink: sink,
		now:  time.Now,
	}
}

func (e *Engine) Symbol() string {
	return e.book.Symbol()
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// AddLimitOrder submits a limit order and returns how it was filled.
func (e *Engine) AddLimitOrder(side orderbook.Side, price, qty uint64) (orderbook.FillResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithFields(logrus.Fields{"side": side.String(), "price": price, "qty": qty})
	log.Debug("order received")

	res, err := e.book.AddLimitOrder(side, price, qty)
	if err != nil {
		log.WithError(err).Warn("order rejected")
		return res, err
	}

	log = log.WithField("order_id", res.OrderID)
	for _, f := range res.Fills {
		log.WithFields(logrus.Fields{"level": f.Price, "matched": f.Quantity}).Debug("matched at level")
	}
	if res.Remaining > 0 {
		log.WithField("remaining", res.Remaining).Debug("remaining quantity resting")
	}
	log.WithField("status", res.Status.String()).Info("order processed")

	e.emit(e.orderEvents(side, price, qty, res))
	return res, nil
}

// CancelOrder removes a resting order. It returns
// orderbook.ErrOrderNotFound for unknown or already finished ids.
func (e *Engine) CancelOrder(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithField("order_id", id)

	rest, _ := e.book.Lookup(id)
	if err := e.book.CancelOrder(id); err != nil {
		log.WithError(err).Warn("cancel rejected")
		return err
	}
	log.Info("order cancelled")

	ev := events.New(events.OrderCancelled, e.book.Symbol(), e.now())
	ev.OrderID = id
	ev.Side = rest.Side.String()
	ev.Price = rest.Price
	ev.Remaining = rest.Quantity
	e.emit(e.withQuote([]events.Event{ev}))
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// BBO returns the top of book and logs it as an observation. ok is false
// while either side is empty.
func (e *Engine) BBO() (orderbook.BBO, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	bbo, ok := e.book.BBO()
	if ok {
		e.log.WithFields(logrus.Fields{
			"best_bid": bbo.BidPrice,
			"bid_qty":  bbo.BidQuantity,
			"best_ask": bbo.AskPrice,
			"ask_qty":  bbo.AskQuantity,
			"spread":   bbo.Spread,
		}).Info("bbo")
	}
	return bbo, ok
}

// Depth returns up to n aggregated levels per side.
func (e *Engine) Depth(n int) (bids, asks []orderbook.Level) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Depth(n)
}

// Lookup finds a resting order.
func (e *Engine) Lookup(id uint64) (orderbook.RestingOrder, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Lookup(id)
}

// Resting returns the number of resting orders.
func (e *Engine) Resting() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Len()
}

//
// ──────────────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────────────
//

func (e *Engine) orderEvents(side orderbook.Side, price, qty uint64, res orderbook.FillResult) []events.Event {
	now := e.now()
	sym := e.book.Symbol()

	accepted := events.New(events.OrderAccepted, sym, now)
	accepted.OrderID = res.OrderID
	accepted.Side = side.String()
	accepted.Price = price
	accepted.Quantity = qty
	accepted.Status = res.Status.String()

	out := make([]events.Event, 0, len(res.Fills)+3)
	out = append(out, accepted)

	for _, f := range res.Fills {
		ev := events.New(events.OrderFilled, sym, now)
		ev.OrderID = res.OrderID
		ev.Side = side.String()
		ev.Price = f.Price
		ev.Quantity = f.Quantity
		out = append(out, ev)
	}

	if res.Remaining > 0 {
		ev := events.New(events.OrderRested, sym, now)
		ev.OrderID = res.OrderID
		ev.Side = side.String()
		ev.Price = price
		ev.Remaining = res.Remaining
		ev.Status = res.Status.String()
		out = append(out, ev)
	}
	return e.withQuote(out)
}

// withQuote appends bbo.changed when the top of book differs from the
// last one emitted.
func (e *Engine) withQuote(evs []events.Event) []events.Event {
	var cur *events.Quote
	if bbo, ok := e.book.BBO(); ok {
		cur = &events.Quote{
			BidPrice:    bbo.BidPrice,
			BidQuantity: bbo.BidQuantity,
			AskPrice:    bbo.AskPrice,
			AskQuantity: bbo.AskQuantity,
			Spread:      bbo.Spread,
		}
	}
	if sameQuote(cur, e.lastQuote) {
		return evs
	}
	e.lastQuote = cur

	ev := events.New(events.BBOChanged, e.book.Symbol(), e.now())
	ev.BBO = cur
	return append(evs, ev)
}

func sameQuote(a, b *events.Quote) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// emit hands evs to the sink. The book has already changed, so a sink
// failure is logged and the command still succeeds.
func (e *Engine) emit(evs []events.Event) {
	if len(evs) == 0 {
		return
	}
	if _, err := e.sink.Append(evs); err != nil {
		e.log.WithError(err).WithField("events", len(evs)).Error("event sink append failed")
	}
}
