// Package service owns the order book. Engine is the one write entry
// point: it serializes commands, logs the observations the book produces
// and hands the resulting events to a sink.
package service
