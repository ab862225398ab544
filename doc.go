// Package goAccount provides handle-based sign-in, a two-step recovery-code
// protocol, and the administrative surface for a small multi-user service.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Account, AccountView, MetricsSnapshot, etc.). Flow
// orchestration, rate limiting, challenge storage and audit dispatch live
// under internal/ and are never exported. Credential storage is pluggable
// through the store package.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or challenge encoding in its public API.
//   - Return password hashes, salts, or recovery codes from any method.
//   - Know about HTTP. Transport lives in httpapi.
//   - Import any sub-package that re-imports goAccount (no import cycles).
//
// # Caller identity
//
// Administrative and self-service methods read the caller from the context
// ([WithActor], [WithOperator]). The caller's account is reloaded on every
// call, so disabling or demoting an account takes effect immediately.
package goAccount
