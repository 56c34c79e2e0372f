// Package transport supplies api.DuplexChannel implementations: a connected
// in-memory pair for tests and in-process wiring, and a non-blocking
// descriptor-backed channel for real socketpairs/pipes on Linux.
package transport
