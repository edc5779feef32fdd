// Package audit implements async delivery of session and access events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op,
//     and the AMQP publisher in the auditamqp package).
//   - [Dispatcher]: buffered async relay. On a full buffer ordinary events
//     drop at once, critical ones (revocations, invalid tokens, failed
//     refreshes) wait briefly; drops are counted per event type.
//   - [Event]: structured record with timestamp, type, subject, token id, request path, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goBlog or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
