// Package otel publishes goAccount engine counters through an OpenTelemetry
// meter.
//
// Counters are folded into a handful of instruments and separated by
// attributes: [LoginAttempts] carries "outcome", [RecoveryEvents] carries
// "stage" and "outcome", [AccountOperations] carries "op" and
// [PasswordEvents] carries "event". Login latency buckets are reported as
// cumulative gauges labelled "le" when histograms are enabled. One callback
// reads [goAccount.Engine.MetricsSnapshot] per collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
