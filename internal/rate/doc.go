// Package rate provides fixed-window point budgets keyed by an arbitrary
// string, with an in-memory backend and a Redis backend.
//
// # Window semantics
//
// A bucket starts full. The first Consume opens a window of Policy.Duration;
// every Consume inside the window spends one point, and once the points are
// spent Consume fails without spending more. When the window elapses the
// bucket is full again. Delete restores a full bucket immediately.
//
// The Redis backend runs check-and-increment as one Lua script so concurrent
// consumers across processes never overspend a bucket.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goAccount module.
package rate
