package auth

import (
	"time"

	"github.com/Turbo-Dex/backend/refresh"
	"github.com/Turbo-Dex/backend/store"
)

// Profile is the public view of a user returned by Signup and Login.
type Profile struct {
	UserID      string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenPair is an access token plus the refresh token that can renew it.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// ResetResult is returned by ResetPasswordWithResult. RecoveryCode is set only when
// Config.Reset.RotateRecoveryCode is enabled.
type ResetResult struct {
	RecoveryCode    string
	SessionsRevoked int64
}

const tokenTypeBearer = "bearer"

func profileFrom(rec store.UserRecord) Profile {
	return Profile{
		UserID:      rec.ID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		CreatedAt:   rec.CreatedAt,
	}
}

func pairFrom(p refresh.Pair) TokenPair {
	return TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        tokenTypeBearer,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
