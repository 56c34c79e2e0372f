// Package buffer implements the fixed-capacity byte ring every endpoint
// absorbs bursts through, plus pooled scratch space for the propagation
// loop.
package buffer
