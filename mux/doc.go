// Package mux provides readiness multiplexing over endpoint channels: the
// portable Notify implementation for channels exposing a readiness token,
// and a level-triggered epoll implementation on Linux for descriptor-backed
// channels.
package mux
