// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRequestRecovery, RunConfirmRecovery,
// RunCreateAccount, RunListAccounts, etc.) accepts a typed dependency struct
// of function fields and returns results without side-effects beyond those
// dependencies, so tests drive every branch with plain closures.
//
// # Ordering rules
//
//   - Login spends a limiter point before the account is read.
//   - Recovery confirmation validates the new password before it touches the
//     challenge, and mutates the account only after the code matched.
//   - Admin mutations resolve the actor first and refuse self-targeted
//     disable, demote and delete.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, limiters, the
// recovery challenge store, the password manager, audit and metrics. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccount (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
