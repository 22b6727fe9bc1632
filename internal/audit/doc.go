// Package audit relays security events from the session engine to pluggable sinks.
//
// # Components
//
//   - [Event]: one security-relevant outcome (signup, login, refresh, logout, reset).
//   - [Sink]: consumer of events. Channel, JSON lines and zap sinks are provided.
//   - [Dispatcher]: buffered asynchronous relay that either drops or blocks when full.
//
// # Architecture boundaries
//
// The engine decides which events to emit. This package only buffers and delivers.
//
// # What this package must NOT do
//
//   - Carry passwords, recovery codes, tokens or secrets in events.
//   - Import the root package or any sibling internal package.
package audit
