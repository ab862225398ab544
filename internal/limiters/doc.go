// Package limiters binds the internal/rate primitives to the two budgets the
// engine enforces per client address.
//
//   - [LoginLimiter] spends one point per login attempt. A successful login
//     resets the address.
//   - [RecoveryLimiter] spends one point per recovery request or confirmation.
//     Check reports an exhausted budget without spending.
//
// Addresses are the only key. An empty address shares the "unknown" budget.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package except internal/rate.
//   - Decide what a rejection means. Flow functions map the errors.
package limiters
