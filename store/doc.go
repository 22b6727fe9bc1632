// Package store defines the persistence contracts of the session subsystem: the user
// credential store and the refresh-token ledger store, their records, and the sentinel
// errors every backend reports.
//
// # Backend contract
//
//   - UserStore.Insert enforces uniqueness of UsernameKey and reports ErrDuplicate.
//   - RefreshTokenStore.Revoke is an atomic compare-and-set of the revoked flag: among
//     concurrent callers for the same record exactly one observes true.
//   - Revoked records never become active again and are never deleted by the core.
//   - Infrastructure failures wrap ErrUnavailable and are never reported as ErrNotFound.
//
// Implementations live in the memory, redis and postgres subpackages; storetest holds
// the conformance suite they all run.
package store
