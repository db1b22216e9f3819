package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeepsLargeIntegers(t *testing.T) {
	e := New(OrderFilled, "BTC", time.Unix(0, 0))
	e.OrderID = 3
	e.Price = 1<<63 + 1
	e.Quantity = 7

	b, err := Encode(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":"9223372036854775809"`)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"v":2,"type":"order.filled"}`))
	assert.ErrorContains(t, err, "unsupported version")

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	e := New(BBOChanged, "ETH", time.Now())
	assert.Equal(t, []byte("ETH"), e.Key())

	e.OrderID = 42
	assert.Equal(t, []byte("ETH/42"), e.Key())
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	a := New(OrderAccepted, "X", time.Now())
	b := New(OrderAccepted, "X", time.Now())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, time.UTC, a.Time.Location())
}
