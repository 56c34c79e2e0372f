// Package api defines the shared contracts of the virtwire module: the
// duplex channel capability endpoints are attached through, the readiness
// multiplexer contract, endpoint handles, and the common error surface.
//
// Implementations live in the concern packages (core/buffer, mux, transport,
// medium); api itself has no behavior beyond error formatting.
package api
