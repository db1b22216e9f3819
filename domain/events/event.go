package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderAccepted  Type = "order.accepted"
	OrderFilled    Type = "order.filled"
	OrderRested    Type = "order.rested"
	OrderCancelled Type = "order.cancelled"
	BBOChanged     Type = "bbo.changed"
)

// Event is one observation emitted by the engine after a command. Seq is
// assigned by the outbox when the event is stored.
type Event struct {
	V       int       `json:"v"`
	ID      uuid.UUID `json:"id"`
	Seq     uint64    `json:"seq"`
	Type    Type      `json:"type"`
	Symbol  string    `json:"symbol"`
	Time    time.Time `json:"time"`
	OrderID uint64    `json:"order_id,omitempty"`
	Side    string    `json:"side,omitempty"`

	// Prices and quantities travel as strings so uint64 survives
	// consumers that parse JSON numbers as float64.
	Price     uint64 `json:"price,string,omitempty"`
	Quantity  uint64 `json:"qty,string,omitempty"`
	Remaining uint64 `json:"remaining,string,omitempty"`
	Status    string `json:"status,omitempty"`

	BBO *Quote `json:"bbo,omitempty"`
}

// Quote is the top of book carried by bbo.changed.
type Quote struct {
	BidPrice    uint64  `json:"bid_price,string"`
	BidQuantity uint64  `json:"bid_qty,string"`
	AskPrice    uint64  `json:"ask_price,string"`
	AskQuantity uint64  `json:"ask_qty,string"`
	Spread      float64 `json:"spread"`
}

const version = 1

// New stamps a fresh event of type t.
func New(t Type, symbol string, now time.Time) Event {
	return Event{
		V:      version,
		ID:     uuid.New(),
		Type:   t,
		Symbol: symbol,
		Time:   now.UTC(),
	}
}

// Key is the partitioning key for brokers: events of one order stay
// together, book-wide events key on the symbol.
func (e Event) Key() []byte {
	if e.OrderID != 0 {
		return []byte(fmt.Sprintf("%s/%d", e.Symbol, e.OrderID))
	}
	return []byte(e.Symbol)
}

func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.V != version {
		return Event{}, fmt.Errorf("decode event: unsupported version %d", e.V)
	}
	return e, nil
}
