// Package memory recycles hot-path objects. The order book allocates one
// Order per resting remainder and releases it when the order is matched
// away or cancelled; OrderPool keeps those allocations off the GC.
package memory
