// Package audit dispatches reset-flow events to pluggable sinks.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with timestamp, type, flow ID, stage, IP and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events exist and what goes
// into their metadata is decided by the Flow in the root package.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on flow logic.
//   - Import goReset or any sibling internal package.
package audit
