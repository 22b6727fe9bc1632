// Package auth implements password-based sessions: users sign up with a username and
// password, log in for a short-lived access token plus a rotating refresh token, and
// reset a forgotten password with a one-time recovery code.
//
// An [Engine] is assembled with [Builder] and is safe for concurrent use. Refresh
// tokens are tracked in a ledger; presenting a token that was already rotated or
// logged out revokes every refresh token of that user.
//
// # Architecture boundaries
//
// auth is the public surface: [Engine], [Builder], [Config], the error taxonomy and
// value types. Hashing lives in password, token signing in jwt, the rotation
// protocol in refresh and persistence behind the store interfaces. Orchestration
// and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Log or return passwords, recovery code hashes or signing secrets.
//   - Hold locks around store calls; the stores provide atomicity.
//   - Depend on a particular store backend.
package auth
