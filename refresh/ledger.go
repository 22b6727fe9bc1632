package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Turbo-Dex/backend/jwt"
	"github.com/Turbo-Dex/backend/store"
)

var (
	// ErrInvalidRefresh is returned for refresh tokens that fail verification or
	// whose ledger record has expired.
	ErrInvalidRefresh = errors.New("invalid refresh token")
	// ErrReuseDetected is returned when a refresh token is presented after its
	// record was revoked or never existed. The user's chain has been revoked.
	ErrReuseDetected = errors.New("refresh token reuse detected")
)

// DefaultStoreTimeout bounds each store call made by the ledger.
const DefaultStoreTimeout = 3 * time.Second

// Codec issues and verifies the token pair. *jwt.Manager satisfies it.
type Codec interface {
	IssueAccess(userID string) (string, error)
	IssueRefresh(userID string) (jwt.RefreshToken, error)
	VerifyRefresh(token string) (jwt.Subject, error)
	AccessTTL() time.Duration
}

// Options tunes a Ledger.
type Options struct {
	// StoreTimeout bounds every store call. Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration
	// Now overrides the clock used for record expiry. Nil means time.Now.
	Now func() time.Time
}

// Pair is an access token plus the refresh token recorded in the ledger.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	JTI              string
}

// Rotation describes the outcome of Rotate. UserID and JTI identify the presented
// token when it could be verified; ChainRevoked counts records revoked on replay.
type Rotation struct {
	Pair         Pair
	UserID       string
	JTI          string
	ChainRevoked int64
}

// Ledger runs the rotation protocol over a RefreshTokenStore.
type Ledger struct {
	codec   Codec
	store   store.RefreshTokenStore
	timeout time.Duration
	now     func() time.Time
}

// New returns a Ledger. codec and st are required.
func New(codec Codec, st store.RefreshTokenStore, opts Options) (*Ledger, error) {
	if codec == nil {
		return nil, errors.New("refresh: codec is required")
	}
	if st == nil {
		return nil, errors.New("refresh: store is required")
	}
	if opts.StoreTimeout < 0 {
		return nil, errors.New("refresh: store timeout must be >= 0")
	}
	if opts.StoreTimeout == 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		codec:   codec,
		store:   st,
		timeout: opts.StoreTimeout,
		now:     opts.Now,
	}, nil
}

// Issue signs a new pair for userID and records the refresh token as active.
func (l *Ledger) Issue(ctx context.Context, userID string) (Pair, error) {
	access, err := l.codec.IssueAccess(userID)
	if err != nil {
		return Pair{}, fmt.Errorf("issue access token: %w", err)
	}
	rt, err := l.codec.IssueRefresh(userID)
	if err != nil {
		return Pair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	sctx, cancel := l.storeContext(ctx)
	defer cancel()
	if _, err := l.store.InsertActive(sctx, store.RefreshRecord{
		UserID:    userID,
		JTI:       rt.JTI,
		ExpiresAt: rt.ExpiresAt,
		CreatedAt: rt.IssuedAt,
	}); err != nil {
		return Pair{}, store.Unavailable(err)
	}

	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  rt.IssuedAt.Add(l.codec.AccessTTL()),
		RefreshToken:     rt.Token,
		RefreshExpiresAt: rt.ExpiresAt,
		JTI:              rt.JTI,
	}, nil
}

// Rotate exchanges a refresh token for a successor pair.
//
// Errors: ErrInvalidRefresh, ErrReuseDetected, or a store.ErrUnavailable wrap. When
// the successor cannot be recorded the presented token stays revoked and the
// session must log in again.
func (l *Ledger) Rotate(ctx context.Context, token string) (Rotation, error) {
	subject, err := l.codec.VerifyRefresh(token)
	if err != nil {
		return Rotation{}, fmt.Errorf("%w: %v", ErrInvalidRefresh, err)
	}
	out := Rotation{UserID: subject.UserID, JTI: subject.JTI}

	rec, err := l.find(ctx, subject.UserID, subject.JTI)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return l.replay(ctx, out)
	case err != nil:
		return out, store.Unavailable(err)
	}
	if rec.Revoked {
		return l.replay(ctx, out)
	}
	if rec.Expired(l.now()) {
		return out, ErrInvalidRefresh
	}

	won, err := l.revoke(ctx, rec.ID)
	if err != nil {
		return out, store.Unavailable(err)
	}
	if !won {
		return l.replay(ctx, out)
	}

	pair, err := l.Issue(ctx, subject.UserID)
	if err != nil {
		return out, err
	}
	out.Pair = pair
	return out, nil
}

// Revoke marks the record of token revoked. Tokens that fail verification, have no
// record or are already revoked are a no-op.
func (l *Ledger) Revoke(ctx context.Context, token string) error {
	subject, err := l.codec.VerifyRefresh(token)
	if err != nil {
		return nil
	}
	rec, err := l.find(ctx, subject.UserID, subject.JTI)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return store.Unavailable(err)
	}
	if rec.Revoked {
		return nil
	}
	if _, err := l.revoke(ctx, rec.ID); err != nil {
		return store.Unavailable(err)
	}
	return nil
}

// RevokeAll revokes every active record of userID and returns how many changed.
func (l *Ledger) RevokeAll(ctx context.Context, userID string) (int64, error) {
	sctx, cancel := l.storeContext(ctx)
	defer cancel()
	n, err := l.store.RevokeAllForUser(sctx, userID)
	if err != nil {
		return n, store.Unavailable(err)
	}
	return n, nil
}

func (l *Ledger) replay(ctx context.Context, out Rotation) (Rotation, error) {
	n, err := l.RevokeAll(ctx, out.UserID)
	out.ChainRevoked = n
	if err != nil {
		return out, fmt.Errorf("revoke chain after reuse: %w", err)
	}
	return out, ErrReuseDetected
}

func (l *Ledger) find(ctx context.Context, userID, jti string) (store.RefreshRecord, error) {
	sctx, cancel := l.storeContext(ctx)
	defer cancel()
	return l.store.FindByUserAndJTI(sctx, userID, jti)
}

func (l *Ledger) revoke(ctx context.Context, id string) (bool, error) {
	sctx, cancel := l.storeContext(ctx)
	defer cancel()
	return l.store.Revoke(sctx, id)
}

func (l *Ledger) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}
