// Package medium implements the virtual broadcast segment: endpoint
// registration against a readiness multiplexer, the propagation loop that
// drains ready sources and fans bytes out to every other endpoint's ring,
// and flush-with-backpressure back out to each endpoint's channel.
package medium
