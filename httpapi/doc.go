// Package httpapi serves a goAccount Engine over HTTP with gin.
//
// Routes live under /api/users. Bodies are JSON and failures carry
// {"error": "..."}. A successful login sets an HttpOnly session cookie holding
// a signed session token (see package jwt). The token only names the account;
// every request re-reads rights from the store through the Engine.
//
// # Middleware
//
// Every request gets a request id, an access log line, an optional global
// rate limit, the client address and, when a valid token is presented, the
// caller identity. Private routes reject anonymous callers with 401.
//
// # Architecture boundaries
//
// Handlers translate HTTP into Engine calls and errors into status codes. All
// authorization decisions belong to the Engine.
//
// # What this package must NOT do
//
//   - Hash or compare passwords.
//   - Touch the credential store directly.
//   - Tell a client whether a login handle exists.
package httpapi
