package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects an insert.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrUnavailable marks transient infrastructure failures.
	ErrUnavailable = errors.New("store unavailable")
)

// Unavailable wraps err with ErrUnavailable, keeping err in the chain.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// UserRecord is the identity anchor of an account.
type UserRecord struct {
	ID               string
	Username         string
	UsernameKey      string
	DisplayName      string
	PasswordHash     string
	RecoveryCodeHash string
	CreatedAt        time.Time
}

// RefreshRecord is one link of a refresh rotation chain.
type RefreshRecord struct {
	ID        string
	UserID    string
	JTI       string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r RefreshRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// UserStore persists user credential records.
type UserStore interface {
	FindByUsernameKey(ctx context.Context, key string) (UserRecord, error)
	// Insert stores rec and returns its ID. A blank rec.ID is assigned by the store.
	Insert(ctx context.Context, rec UserRecord) (string, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRecoveryCodeHash(ctx context.Context, id, hash string) error
}

// RefreshTokenStore persists the refresh ledger.
type RefreshTokenStore interface {
	FindByUserAndJTI(ctx context.Context, userID, jti string) (RefreshRecord, error)
	// InsertActive stores rec as not revoked and returns its ID.
	InsertActive(ctx context.Context, rec RefreshRecord) (string, error)
	// Revoke flips the record to revoked. It returns true only for the caller whose
	// update changed the flag; already revoked or unknown records yield false.
	Revoke(ctx context.Context, id string) (bool, error)
	// RevokeAllForUser revokes every active record of userID and returns how many changed.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// UsernameKey returns the case-folded uniqueness key for username.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
