// Package storetest is a conformance suite every store backend runs from its tests.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Turbo-Dex/backend/store"
)

// Backend is a store implementing both contracts.
type Backend interface {
	store.UserStore
	store.RefreshTokenStore
}

// Run executes the suite. newBackend must return an empty backend on every call.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	t.Run("UserInsertAndFind", func(t *testing.T) { testUserInsertAndFind(t, newBackend(t)) })
	t.Run("UserDuplicateKey", func(t *testing.T) { testUserDuplicateKey(t, newBackend(t)) })
	t.Run("UserUpdates", func(t *testing.T) { testUserUpdates(t, newBackend(t)) })
	t.Run("RefreshInsertAndFind", func(t *testing.T) { testRefreshInsertAndFind(t, newBackend(t)) })
	t.Run("RefreshDuplicate", func(t *testing.T) { testRefreshDuplicate(t, newBackend(t)) })
	t.Run("RevokeIsCompareAndSet", func(t *testing.T) { testRevokeIsCompareAndSet(t, newBackend(t)) })
	t.Run("RevokeAllForUser", func(t *testing.T) { testRevokeAllForUser(t, newBackend(t)) })
	t.Run("ConcurrentRevokeSingleWinner", func(t *testing.T) { testConcurrentRevoke(t, newBackend(t)) })
}

func newUser(name string) store.UserRecord {
	return store.UserRecord{
		Username:         name,
		UsernameKey:      store.UsernameKey(name),
		DisplayName:      name + " display",
		PasswordHash:     "$argon2id$hash-" + name,
		RecoveryCodeHash: "$argon2id$recovery-" + name,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
}

// seedUser inserts a user so refresh records satisfy backends that enforce ownership.
func seedUser(t *testing.T, b Backend, name string) string {
	t.Helper()
	id, err := b.Insert(context.Background(), newUser(name))
	require.NoError(t, err)
	return id
}

func newRefresh(userID, jti string) store.RefreshRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return store.RefreshRecord{
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: now.Add(14 * 24 * time.Hour),
		CreatedAt: now,
	}
}

func testUserInsertAndFind(t *testing.T, b Backend) {
	ctx := context.Background()

	_, err := b.FindByUsernameKey(ctx, "alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	in := newUser("Alice")
	id, err := b.Insert(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := b.FindByUsernameKey(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alice", got.Username)
	assert.Equal(t, "alice", got.UsernameKey)
	assert.Equal(t, in.DisplayName, got.DisplayName)
	assert.Equal(t, in.PasswordHash, got.PasswordHash)
	assert.Equal(t, in.RecoveryCodeHash, got.RecoveryCodeHash)
	assert.WithinDuration(t, in.CreatedAt, got.CreatedAt, time.Second)
}

func testUserDuplicateKey(t *testing.T, b Backend) {
	ctx := context.Background()

	_, err := b.Insert(ctx, newUser("bob"))
	require.NoError(t, err)

	_, err = b.Insert(ctx, newUser("BOB"))
	require.ErrorIs(t, err, store.ErrDuplicate)

	_, err = b.Insert(ctx, newUser("carol"))
	require.NoError(t, err)
}

func testUserUpdates(t *testing.T, b Backend) {
	ctx := context.Background()

	id, err := b.Insert(ctx, newUser("dave"))
	require.NoError(t, err)

	require.NoError(t, b.UpdatePasswordHash(ctx, id, "new-password-hash"))
	require.NoError(t, b.UpdateRecoveryCodeHash(ctx, id, "new-recovery-hash"))

	got, err := b.FindByUsernameKey(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "new-password-hash", got.PasswordHash)
	assert.Equal(t, "new-recovery-hash", got.RecoveryCodeHash)

	require.ErrorIs(t, b.UpdatePasswordHash(ctx, "missing-user", "x"), store.ErrNotFound)
	require.ErrorIs(t, b.UpdateRecoveryCodeHash(ctx, "missing-user", "x"), store.ErrNotFound)
}

func testRefreshInsertAndFind(t *testing.T, b Backend) {
	ctx := context.Background()
	u1 := seedUser(t, b, "u1")
	u2 := seedUser(t, b, "u2")

	_, err := b.FindByUserAndJTI(ctx, u1, "j1")
	require.ErrorIs(t, err, store.ErrNotFound)

	in := newRefresh(u1, "j1")
	id, err := b.InsertActive(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := b.FindByUserAndJTI(ctx, u1, "j1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, u1, got.UserID)
	assert.Equal(t, "j1", got.JTI)
	assert.False(t, got.Revoked)
	assert.WithinDuration(t, in.ExpiresAt, got.ExpiresAt, time.Second)

	_, err = b.FindByUserAndJTI(ctx, u2, "j1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testRefreshDuplicate(t *testing.T, b Backend) {
	ctx := context.Background()
	u1 := seedUser(t, b, "u1")
	u2 := seedUser(t, b, "u2")

	_, err := b.InsertActive(ctx, newRefresh(u1, "j1"))
	require.NoError(t, err)

	_, err = b.InsertActive(ctx, newRefresh(u1, "j1"))
	require.ErrorIs(t, err, store.ErrDuplicate)

	_, err = b.InsertActive(ctx, newRefresh(u2, "j1"))
	require.NoError(t, err)
}

func testRevokeIsCompareAndSet(t *testing.T, b Backend) {
	ctx := context.Background()
	u1 := seedUser(t, b, "u1")

	id, err := b.InsertActive(ctx, newRefresh(u1, "j1"))
	require.NoError(t, err)

	ok, err := b.Revoke(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Revoke(ctx, id)
	require.NoError(t, err)
	require.False(t, ok, "second revoke must not observe the record as active")

	ok, err = b.Revoke(ctx, "missing-record")
	require.NoError(t, err)
	require.False(t, ok)

	got, err := b.FindByUserAndJTI(ctx, u1, "j1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func testRevokeAllForUser(t *testing.T, b Backend) {
	ctx := context.Background()
	u1 := seedUser(t, b, "u1")
	u2 := seedUser(t, b, "u2")

	first, err := b.InsertActive(ctx, newRefresh(u1, "j1"))
	require.NoError(t, err)
	_, err = b.InsertActive(ctx, newRefresh(u1, "j2"))
	require.NoError(t, err)
	_, err = b.InsertActive(ctx, newRefresh(u1, "j3"))
	require.NoError(t, err)
	_, err = b.InsertActive(ctx, newRefresh(u2, "j4"))
	require.NoError(t, err)

	ok, err := b.Revoke(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := b.RevokeAllForUser(ctx, u1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, jti := range []string{"j1", "j2", "j3"} {
		rec, err := b.FindByUserAndJTI(ctx, u1, jti)
		require.NoError(t, err)
		assert.True(t, rec.Revoked, "jti %s must be revoked", jti)
	}

	other, err := b.FindByUserAndJTI(ctx, u2, "j4")
	require.NoError(t, err)
	assert.False(t, other.Revoked)

	n, err = b.RevokeAllForUser(ctx, u1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = b.RevokeAllForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func testConcurrentRevoke(t *testing.T, b Backend) {
	ctx := context.Background()
	u1 := seedUser(t, b, "u1")

	id, err := b.InsertActive(ctx, newRefresh(u1, "race"))
	require.NoError(t, err)

	const workers = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		winners atomic.Int64
		errs    atomic.Int64
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := b.Revoke(ctx, id)
			if err != nil {
				errs.Add(1)
				return
			}
			if ok {
				winners.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Zero(t, errs.Load())
	require.EqualValues(t, 1, winners.Load())
}
