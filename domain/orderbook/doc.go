// Package orderbook implements a single-instrument limit order book with
// price-time priority matching.
//
// Prices and quantities are unsigned tick and lot counts. Each side keeps
// its price levels in a slot-addressed slice with a B-tree mapping price to
// slot; a global index maps every resting order id to its side and slot so
// cancellation does not search the book.
//
// The book has no internal locking. The service package provides the
// single-writer owner.
package orderbook
