package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook/domain/events"
	"tickbook/domain/orderbook"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]events.Event
	err     error
}

func (s *recordingSink) Append(evs []events.Event) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, evs)
	return evs, nil
}

func (s *recordingSink) last() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[len(s.batches)-1]
}

func types(evs []events.Event) []events.Type {
	out := make([]events.Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func newTestEngine() (*Engine, *recordingSink, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	sink := &recordingSink{}
	return NewEngine(orderbook.New("TEST"), logger, sink), sink, hook
}

func TestEngineRoundTrip(t *testing.T) {
	eng, sink, _ := newTestEngine()

	ask, err := eng.AddLimitOrder(orderbook.Ask, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, orderbook.Created, ask.Status)
	assert.Equal(t, []events.Type{events.OrderAccepted, events.OrderRested}, types(sink.last()))

	bid, err := eng.AddLimitOrder(orderbook.Bid, 100, 4)
	require.NoError(t, err)
	assert.Equal(t, orderbook.Filled, bid.Status)
	assert.Equal(t, []orderbook.Fill{{Quantity: 4, Price: 100}}, bid.Fills)

	batch := sink.last()
	assert.Equal(t, []events.Type{events.OrderAccepted, events.OrderFilled}, types(batch))
	assert.Equal(t, uint64(4), batch[1].Quantity)

	rest, ok := eng.Lookup(ask.OrderID)
	require.True(t, ok)
	assert.Equal(t, uint64(6), rest.Quantity)
}

func TestEngineEmitsQuoteChanges(t *testing.T) {
	eng, sink, _ := newTestEngine()

	_, err := eng.AddLimitOrder(orderbook.Bid, 99, 5)
	require.NoError(t, err)
	_, err = eng.AddLimitOrder(orderbook.Ask, 101, 5)
	require.NoError(t, err)

	batch := sink.last()
	require.Equal(t, events.BBOChanged, batch[len(batch)-1].Type)
	q := batch[len(batch)-1].BBO
	require.NotNil(t, q)
	assert.Equal(t, events.Quote{BidPrice: 99, BidQuantity: 5, AskPrice: 101, AskQuantity: 5, Spread: 2.0 / 101.0}, *q)

	// Adding behind the top of book leaves the quote alone.
	_, err = eng.AddLimitOrder(orderbook.Bid, 90, 1)
	require.NoError(t, err)
	assert.NotContains(t, types(sink.last()), events.BBOChanged)
}

func TestEngineCancel(t *testing.T) {
	eng, sink, hook := newTestEngine()

	res, err := eng.AddLimitOrder(orderbook.Bid, 50, 3)
	require.NoError(t, err)
	_, err = eng.AddLimitOrder(orderbook.Ask, 60, 3)
	require.NoError(t, err)

	require.NoError(t, eng.CancelOrder(res.OrderID))
	batch := sink.last()
	assert.Equal(t, []events.Type{events.OrderCancelled, events.BBOChanged}, types(batch))
	assert.Equal(t, "bid", batch[0].Side)
	assert.Equal(t, uint64(3), batch[0].Remaining)
	assert.Nil(t, batch[1].BBO, "bid side emptied")

	_, ok := eng.BBO()
	assert.False(t, ok)

	err = eng.CancelOrder(res.OrderID)
	assert.ErrorIs(t, err, orderbook.ErrOrderNotFound)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestEngineRejectsDegenerateInput(t *testing.T) {
	eng, sink, hook := newTestEngine()

	_, err := eng.AddLimitOrder(orderbook.Bid, 0, 1)
	assert.ErrorIs(t, err, orderbook.ErrDegenerateInput)
	assert.Empty(t, sink.batches)
	assert.Equal(t, "order rejected", hook.LastEntry().Message)
}

func TestEngineSinkFailureKeepsOrder(t *testing.T) {
	eng, sink, hook := newTestEngine()
	sink.err = errors.New("disk full")

	res, err := eng.AddLimitOrder(orderbook.Ask, 10, 1)
	require.NoError(t, err)

	_, ok := eng.Lookup(res.OrderID)
	assert.True(t, ok)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "event sink append failed", hook.LastEntry().Message)
}

func TestEngineBBOLogsObservation(t *testing.T) {
	eng, _, hook := newTestEngine()
	_, _ = eng.AddLimitOrder(orderbook.Bid, 10, 2)
	_, _ = eng.AddLimitOrder(orderbook.Ask, 20, 3)

	bbo, ok := eng.BBO()
	require.True(t, ok)
	assert.Equal(t, uint64(10), bbo.BidPrice)

	entry := hook.LastEntry()
	assert.Equal(t, "bbo", entry.Message)
	assert.Equal(t, uint64(2), entry.Data["bid_qty"])
	assert.Equal(t, uint64(20), entry.Data["best_ask"])
	assert.Equal(t, 0.5, entry.Data["spread"])
}

func TestEngineConcurrentUse(t *testing.T) {
	eng, _, _ := newTestEngine()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				side := orderbook.Side(i % 2)
				_, err := eng.AddLimitOrder(side, 100+uint64(i%5), 1)
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				eng.BBO()
				eng.Depth(3)
			}
		}()
	}
	wg.Wait()

	bids, asks := eng.Depth(0)
	var resting uint64
	for _, l := range append(bids, asks...) {
		resting += l.Quantity
	}
	assert.Equal(t, uint64(eng.Resting()), resting, "every resting order has quantity 1")
}

func TestNilSinkDiscards(t *testing.T) {
	logger, _ := test.NewNullLogger()
	eng := NewEngine(orderbook.New("TEST"), logger, nil)
	_, err := eng.AddLimitOrder(orderbook.Bid, 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, "TEST", eng.Symbol())
}
