// Package stores holds short-lived recovery challenges, in process memory or
// in Redis.
//
// # Design
//
// A challenge is the SHA-256 of a recovery code plus an attempt counter and
// an absolute expiry. Redis records are versioned and binary-encoded; Consume
// runs under WATCH/MULTI with retry on contention. The in-memory store applies
// the same state machine under the cache lock. Challenges are single-use and
// code comparison is constant-time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenges. It
// does NOT generate codes, enforce rate limits, or make authentication
// decisions; those belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package other than internal/ttlcache.
//   - Log or expose plaintext codes.
//   - Use non-constant-time comparisons for code matching.
package stores
