// Package broadcaster implements a background job that periodically
// scans the event outbox for unacknowledged records and publishes them
// to Kafka.
package broadcaster
