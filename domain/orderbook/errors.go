package orderbook

import "errors"

var (
	ErrOrderNotFound    = errors.New("orderbook: order not found")
	ErrDegenerateInput  = errors.New("orderbook: price and quantity must be positive")
	ErrInvalidSide      = errors.New("orderbook: invalid side")
	ErrDuplicateOrderID = errors.New("orderbook: order id already resting")
	ErrEmptyFillAverage = errors.New("orderbook: average of empty fill list")
)
