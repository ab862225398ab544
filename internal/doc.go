// Package internal contains helpers private to goAccount: recovery-code
// generation and handle normalisation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - keylock: per-handle mutexes for read-modify-write on account records
//   - limiters: login and recovery rate-limit policies
//   - logging: structured logger interface and slog implementation
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window point budgets (memory and Redis)
//   - security: posture report rendering
//   - serverconfig: server binary configuration loading
//   - stores: recovery challenge stores (memory and Redis)
//   - ttlcache: generic expiring map
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API.
//   - Be imported by any package outside the goAccount module.
package internal
