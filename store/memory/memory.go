// Package memory provides an in-process implementation of the store contracts for
// tests, local development and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Turbo-Dex/backend/store"
)

type ledgerKey struct {
	userID string
	jti    string
}

// Store implements store.UserStore and store.RefreshTokenStore under one mutex.
type Store struct {
	mu sync.Mutex

	users     map[string]store.UserRecord
	usernames map[string]string
	refresh   map[string]store.RefreshRecord
	byJTI     map[ledgerKey]string
	byUser    map[string]map[string]struct{}
	now       func() time.Time
}

var (
	_ store.UserStore         = (*Store)(nil)
	_ store.RefreshTokenStore = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[string]store.UserRecord),
		usernames: make(map[string]string),
		refresh:   make(map[string]store.RefreshRecord),
		byJTI:     make(map[ledgerKey]string),
		byUser:    make(map[string]map[string]struct{}),
		now:       time.Now,
	}
}

// FindByUsernameKey implements store.UserStore.
func (s *Store) FindByUsernameKey(ctx context.Context, key string) (store.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.UserRecord{}, store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usernames[key]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return s.users[id], nil
}

// Insert implements store.UserStore.
func (s *Store) Insert(ctx context.Context, rec store.UserRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[rec.UsernameKey]; taken {
		return "", store.ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, taken := s.users[rec.ID]; taken {
		return "", store.ErrDuplicate
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	s.users[rec.ID] = rec
	s.usernames[rec.UsernameKey] = rec.ID
	return rec.ID, nil
}

// UpdatePasswordHash implements store.UserStore.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, id, func(rec *store.UserRecord) { rec.PasswordHash = hash })
}

// UpdateRecoveryCodeHash implements store.UserStore.
func (s *Store) UpdateRecoveryCodeHash(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, id, func(rec *store.UserRecord) { rec.RecoveryCodeHash = hash })
}

func (s *Store) updateUser(ctx context.Context, id string, mutate func(*store.UserRecord)) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	mutate(&rec)
	s.users[id] = rec
	return nil
}

// FindByUserAndJTI implements store.RefreshTokenStore.
func (s *Store) FindByUserAndJTI(ctx context.Context, userID, jti string) (store.RefreshRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.RefreshRecord{}, store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byJTI[ledgerKey{userID: userID, jti: jti}]
	if !ok {
		return store.RefreshRecord{}, store.ErrNotFound
	}
	return s.refresh[id], nil
}

// InsertActive implements store.RefreshTokenStore.
func (s *Store) InsertActive(ctx context.Context, rec store.RefreshRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey{userID: rec.UserID, jti: rec.JTI}
	if _, exists := s.byJTI[key]; exists {
		return "", store.ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Revoked = false

	s.refresh[rec.ID] = rec
	s.byJTI[key] = rec.ID
	ids, ok := s.byUser[rec.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[rec.UserID] = ids
	}
	ids[rec.ID] = struct{}{}
	return rec.ID, nil
}

// Revoke implements store.RefreshTokenStore.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refresh[id]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	s.refresh[id] = rec
	return true, nil
}

// RevokeAllForUser implements store.RefreshTokenStore.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id := range s.byUser[userID] {
		rec := s.refresh[id]
		if rec.Revoked {
			continue
		}
		rec.Revoked = true
		s.refresh[id] = rec
		n++
	}
	return n, nil
}

// ActiveCount returns the number of non-revoked records of userID.
func (s *Store) ActiveCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.byUser[userID] {
		if !s.refresh[id].Revoked {
			n++
		}
	}
	return n
}
