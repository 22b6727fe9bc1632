// Package middleware exposes the HTTP bearer guard built on top of auth.Engine.
//
// # Guards
//
//   - [RequireAuth] verifies the access token and injects the user ID into the
//     request context (see auth.UserIDFromContext).
//
// Rejections are 401 JSON bodies whose "error" field tells a missing header, an
// expired token and an invalid token apart.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every decision is
// delegated to Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Touch the refresh ledger or any store.
package middleware
