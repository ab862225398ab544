// Package prometheus renders goAccount engine counters in Prometheus text
// exposition format. The HTTP server mounts [Exporter.Handler] at /metrics.
//
// Counter names are goaccount_*_total. The login latency histogram,
// goaccount_login_latency_seconds, is emitted only when latency histograms
// are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry.
//   - Mutate engine state.
package prometheus
