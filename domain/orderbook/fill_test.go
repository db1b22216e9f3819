package orderbook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAveragePrice(t *testing.T) {
	tests := []struct {
		name  string
		fills []Fill
		want  float64
	}{
		{"single", []Fill{{Quantity: 4, Price: 100}}, 100},
		{"weighted", []Fill{{Quantity: 1, Price: 10}, {Quantity: 3, Price: 14}}, 13},
		{"wide", []Fill{{Quantity: math.MaxUint32, Price: math.MaxUint64}}, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FillResult{Fills: tt.fills}.AveragePrice()
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}
}

func TestAveragePriceEmpty(t *testing.T) {
	_, err := FillResult{}.AveragePrice()
	assert.ErrorIs(t, err, ErrEmptyFillAverage)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "partially_filled", PartiallyFilled.String())
	assert.Equal(t, "filled", Filled.String())
	assert.Equal(t, "status(0)", Status(0).String())
}
