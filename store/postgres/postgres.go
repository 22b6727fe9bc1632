// Package postgres implements the store contracts on PostgreSQL through database/sql
// and the pgx driver. Uniqueness is enforced by indexes; Revoke is a conditional
// UPDATE whose affected-row count decides the compare-and-set winner.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Turbo-Dex/backend/store"
)

const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by Store.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.UserStore and store.RefreshTokenStore on PostgreSQL.
type Store struct {
	db      DBTX
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

var (
	_ store.UserStore         = (*Store)(nil)
	_ store.RefreshTokenStore = (*Store)(nil)
)

// New returns a Store bound to db.
func New(db DBTX) *Store {
	return &Store{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// Open connects to dsn with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, store.Unavailable(err)
	}
	return db, nil
}

// FindByUsernameKey implements store.UserStore.
func (s *Store) FindByUsernameKey(ctx context.Context, key string) (store.UserRecord, error) {
	query, args, err := s.builder.Select(
		"id",
		"username",
		"username_key",
		"display_name",
		"password_hash",
		"recovery_code_hash",
		"created_at",
	).
		From("users").
		Where(squirrel.Eq{"username_key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("build select user sql: %w", err)
	}

	var rec store.UserRecord
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID,
		&rec.Username,
		&rec.UsernameKey,
		&rec.DisplayName,
		&rec.PasswordHash,
		&rec.RecoveryCodeHash,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.UserRecord{}, store.ErrNotFound
		}
		return store.UserRecord{}, store.Unavailable(err)
	}
	return rec, nil
}

// Insert implements store.UserStore.
func (s *Store) Insert(ctx context.Context, rec store.UserRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	query, args, err := s.builder.Insert("users").
		Columns(
			"id",
			"username",
			"username_key",
			"display_name",
			"password_hash",
			"recovery_code_hash",
			"created_at",
		).
		Values(
			rec.ID,
			rec.Username,
			rec.UsernameKey,
			rec.DisplayName,
			rec.PasswordHash,
			rec.RecoveryCodeHash,
			rec.CreatedAt,
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", classify(err)
	}
	return rec.ID, nil
}

// UpdatePasswordHash implements store.UserStore.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, id, "password_hash", hash)
}

// UpdateRecoveryCodeHash implements store.UserStore.
func (s *Store) UpdateRecoveryCodeHash(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, id, "recovery_code_hash", hash)
}

func (s *Store) updateUser(ctx context.Context, id, column, value string) error {
	query, args, err := s.builder.Update("users").
		Set(column, value).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return store.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FindByUserAndJTI implements store.RefreshTokenStore.
func (s *Store) FindByUserAndJTI(ctx context.Context, userID, jti string) (store.RefreshRecord, error) {
	query, args, err := s.builder.Select(
		"id",
		"user_id",
		"jti",
		"expires_at",
		"revoked",
		"created_at",
	).
		From("refresh_tokens").
		Where(squirrel.And{
			squirrel.Eq{"user_id": userID},
			squirrel.Eq{"jti": jti},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return store.RefreshRecord{}, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var rec store.RefreshRecord
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.JTI,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.RefreshRecord{}, store.ErrNotFound
		}
		return store.RefreshRecord{}, store.Unavailable(err)
	}
	return rec, nil
}

// InsertActive implements store.RefreshTokenStore.
func (s *Store) InsertActive(ctx context.Context, rec store.RefreshRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	query, args, err := s.builder.Insert("refresh_tokens").
		Columns("id", "user_id", "jti", "expires_at", "revoked", "created_at").
		Values(rec.ID, rec.UserID, rec.JTI, rec.ExpiresAt, false, rec.CreatedAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", classify(err)
	}
	return rec.ID, nil
}

// Revoke implements store.RefreshTokenStore.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	query, args, err := s.builder.Update("refresh_tokens").
		Set("revoked", true).
		Where(squirrel.Eq{"id": id, "revoked": false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build revoke refresh token sql: %w", err)
	}

	n, err := s.execAffected(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllForUser implements store.RefreshTokenStore.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query, args, err := s.builder.Update("refresh_tokens").
		Set("revoked", true).
		Where(squirrel.Eq{"user_id": userID, "revoked": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke all refresh tokens sql: %w", err)
	}
	return s.execAffected(ctx, query, args...)
}

func (s *Store) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.Unavailable(err)
	}
	return n, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return store.Unavailable(err)
}
