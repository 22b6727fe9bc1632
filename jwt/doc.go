// Package jwt issues and verifies the HS256 access and refresh tokens of a session.
//
// Access and refresh tokens are signed with two independent secrets, so one kind can
// never be replayed as the other. Verification requires exp, iat and sub, accepts only
// HS256, and tolerates a small clock skew between issuing and verifying hosts.
//
// # What this package must NOT do
//
//   - Persist tokens or consult any store; refresh revocation lives in package refresh.
//   - Log secrets or raw tokens.
package jwt
