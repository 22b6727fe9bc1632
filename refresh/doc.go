// Package refresh implements the refresh ledger and its rotation protocol.
//
// Every issued refresh token has a ledger record keyed by (user_id, jti). A record
// moves from active to revoked exactly once and is never reactivated.
//
// # Rotation
//
// Rotate verifies the presented token, looks up its record and revokes it with an
// atomic compare-and-set before issuing a successor. A token whose record is absent
// or already revoked is treated as replay: every active record of the user is
// revoked and ErrReuseDetected is returned. Of N concurrent rotations of one token
// exactly one wins the compare-and-set; the losers take the replay path.
//
// # Architecture boundaries
//
// The ledger depends on a token codec and a store.RefreshTokenStore. It holds no
// locks of its own; atomicity comes from the store.
//
// # What this package must NOT do
//
//   - Log tokens or secrets.
//   - Touch user credential records.
//   - Reactivate a revoked record.
package refresh
