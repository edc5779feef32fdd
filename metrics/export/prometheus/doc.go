// Package prometheus renders goBlog engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [goBlog.Engine] and exposes an [http.Handler].
// Counters are named goblog_*_total; latency histograms are goblog_*_seconds and
// are emitted only when latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
