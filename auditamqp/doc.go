// Package auditamqp publishes goBlog audit events to a RabbitMQ queue.
//
// [Sink] implements [goBlog.AuditSink]. Events are JSON encoded and published
// as persistent messages on the default exchange with the queue name as
// routing key. Publish failures are logged and the event is dropped; the
// engine's audit dispatcher never blocks on the broker beyond PublishTimeout.
//
// # What this package must NOT do
//
//   - Consume from the queue.
//   - Retry or buffer events. Buffering belongs to the engine dispatcher.
package auditamqp
