package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned for a well-formed, correctly signed token past its exp.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for every other verification failure.
	ErrInvalid = errors.New("token invalid")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
	minSecret   = 8
)

// Config holds signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	Issuer        string
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// Manager signs and verifies access and refresh tokens.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// AccessClaims are the claims of an access token.
type AccessClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims of a refresh token. The jti is RegisteredClaims.ID.
type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshToken is an issued refresh credential with the values the ledger records.
type RefreshToken struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Subject is the verified identity carried by a refresh token.
type Subject struct {
	UserID string
	JTI    string
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < minSecret {
		return nil, errors.New("access secret must be at least 8 bytes")
	}
	if len(cfg.RefreshSecret) < minSecret {
		return nil, errors.New("refresh secret must be at least 8 bytes")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}

	return &Manager{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Leeway returns the tolerated clock skew.
func (m *Manager) Leeway() time.Duration { return m.config.Leeway }

// IssueAccess signs {sub, iat, exp} with the access secret.
func (m *Manager) IssueAccess(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty subject")
	}
	now := m.config.Now()
	claims := AccessClaims{
		Type: typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.AccessSecret)
}

// IssueRefresh signs {sub, jti, iat, exp} with the refresh secret under a fresh random jti.
func (m *Manager) IssueRefresh(userID string) (RefreshToken, error) {
	if userID == "" {
		return RefreshToken{}, errors.New("empty subject")
	}
	jti, err := uuid.NewRandom()
	if err != nil {
		return RefreshToken{}, fmt.Errorf("generate jti: %w", err)
	}

	now := m.config.Now()
	// NumericDate truncates to seconds; keep the record in step with the signed claim.
	issued := jwt.NewNumericDate(now)
	expires := jwt.NewNumericDate(now.Add(m.config.RefreshTTL))
	claims := RefreshClaims{
		Type: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti.String(),
			Issuer:    m.config.Issuer,
			IssuedAt:  issued,
			ExpiresAt: expires,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Token:     signed,
		JTI:       claims.ID,
		IssuedAt:  issued.Time,
		ExpiresAt: expires.Time,
	}, nil
}

// VerifyAccess returns the subject of a valid access token, or ErrExpired / ErrInvalid.
func (m *Manager) VerifyAccess(tokenStr string) (string, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return "", err
	}
	if claims.Type != typeAccess {
		return "", fmt.Errorf("%w: unexpected token type", ErrInvalid)
	}
	if err := checkRegistered(&claims.RegisteredClaims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefresh returns the subject and jti of a valid refresh token, or ErrExpired / ErrInvalid.
// It does not consult the ledger.
func (m *Manager) VerifyRefresh(tokenStr string) (Subject, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return Subject{}, err
	}
	if claims.Type != typeRefresh {
		return Subject{}, fmt.Errorf("%w: unexpected token type", ErrInvalid)
	}
	if err := checkRegistered(&claims.RegisteredClaims); err != nil {
		return Subject{}, err
	}
	if claims.ID == "" {
		return Subject{}, fmt.Errorf("%w: missing jti", ErrInvalid)
	}
	return Subject{UserID: claims.Subject, JTI: claims.ID}, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty token", ErrInvalid)
	}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		// Only a signature-valid token reaches the expiry check, so this never
		// reports a forged token as merely expired.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !token.Valid {
		return ErrInvalid
	}
	return nil
}

func checkRegistered(claims *jwt.RegisteredClaims) error {
	if claims.Subject == "" {
		return fmt.Errorf("%w: missing sub", ErrInvalid)
	}
	// WithIssuedAt only checks iat when present.
	if claims.IssuedAt == nil {
		return fmt.Errorf("%w: missing iat", ErrInvalid)
	}
	return nil
}
