package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Turbo-Dex/backend/store"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return New(db), mock
}

const (
	selectUserQuery    = `(?s)^SELECT\s+id,\s*username,\s*username_key,\s*display_name,\s*password_hash,\s*recovery_code_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+username_key\s*=\s*\$1\s+LIMIT\s+1$`
	insertUserQuery    = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*username_key,\s*display_name,\s*password_hash,\s*recovery_code_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)$`
	updatePasswordSQL  = `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`
	updateRecoverySQL  = `(?s)^UPDATE\s+users\s+SET\s+recovery_code_hash\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`
	selectRefreshQuery = `(?s)^SELECT\s+id,\s*user_id,\s*jti,\s*expires_at,\s*revoked,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+\(user_id\s*=\s*\$1\s+AND\s+jti\s*=\s*\$2\)\s+LIMIT\s+1$`
	insertRefreshQuery = `(?s)^INSERT\s+INTO\s+refresh_tokens\s*\(id,\s*user_id,\s*jti,\s*expires_at,\s*revoked,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)$`
	revokeQuery        = `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s+AND\s+revoked\s*=\s*\$3$`
	revokeAllQuery     = `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*\$1\s+WHERE\s+revoked\s*=\s*\$2\s+AND\s+user_id\s*=\s*\$3$`
)

func TestFindByUsernameKey_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "username", "username_key", "display_name", "password_hash", "recovery_code_hash", "created_at"}).
		AddRow("u1", "Alice", "alice", "Alice A.", "phash", "rhash", created)
	mock.ExpectQuery(selectUserQuery).WithArgs("alice").WillReturnRows(rows)

	got, err := s.FindByUsernameKey(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, store.UserRecord{
		ID:               "u1",
		Username:         "Alice",
		UsernameKey:      "alice",
		DisplayName:      "Alice A.",
		PasswordHash:     "phash",
		RecoveryCodeHash: "rhash",
		CreatedAt:        created,
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameKey_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(selectUserQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := s.FindByUsernameKey(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameKey_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(selectUserQuery).WithArgs("alice").WillReturnError(errors.New("db down"))

	_, err := s.FindByUsernameKey(context.Background(), "alice")
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.NotErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "db down")
}

func TestInsertUser(t *testing.T) {
	s, mock := newStoreWithMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(insertUserQuery).
		WithArgs("u1", "Alice", "alice", "Alice", "phash", "rhash", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.Insert(context.Background(), store.UserRecord{
		ID:               "u1",
		Username:         "Alice",
		UsernameKey:      "alice",
		DisplayName:      "Alice",
		PasswordHash:     "phash",
		RecoveryCodeHash: "rhash",
		CreatedAt:        created,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUser_AssignsID(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "bob", "bob", "", "p", "r", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.Insert(context.Background(), store.UserRecord{Username: "bob", UsernameKey: "bob", PasswordHash: "p", RecoveryCodeHash: "r"})
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestInsertUser_UniqueViolation(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertUserQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key_uq"})

	_, err := s.Insert(context.Background(), store.UserRecord{ID: "u2", Username: "ALICE", UsernameKey: "alice"})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestInsertUser_OtherPgErrorIsUnavailable(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(insertUserQuery).WillReturnError(&pgconn.PgError{Code: "57P01"})

	_, err := s.Insert(context.Background(), store.UserRecord{ID: "u2", UsernameKey: "alice"})
	require.ErrorIs(t, err, store.ErrUnavailable)
}

func TestUpdateHashes(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(updatePasswordSQL).WithArgs("new-hash", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateRecoverySQL).WithArgs("new-code", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updatePasswordSQL).WithArgs("x", "missing").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdatePasswordHash(context.Background(), "u1", "new-hash"))
	require.NoError(t, s.UpdateRecoveryCodeHash(context.Background(), "u1", "new-code"))
	require.ErrorIs(t, s.UpdatePasswordHash(context.Background(), "missing", "x"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUserAndJTI(t *testing.T) {
	s, mock := newStoreWithMock(t)
	expires := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	created := expires.Add(-14 * 24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "user_id", "jti", "expires_at", "revoked", "created_at"}).
		AddRow("r1", "u1", "j1", expires, true, created)
	mock.ExpectQuery(selectRefreshQuery).WithArgs("u1", "j1").WillReturnRows(rows)
	mock.ExpectQuery(selectRefreshQuery).WithArgs("u1", "j2").WillReturnError(sql.ErrNoRows)

	got, err := s.FindByUserAndJTI(context.Background(), "u1", "j1")
	require.NoError(t, err)
	assert.Equal(t, store.RefreshRecord{ID: "r1", UserID: "u1", JTI: "j1", ExpiresAt: expires, Revoked: true, CreatedAt: created}, got)

	_, err = s.FindByUserAndJTI(context.Background(), "u1", "j2")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertActive(t *testing.T) {
	s, mock := newStoreWithMock(t)
	expires := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(insertRefreshQuery).
		WithArgs("r1", "u1", "j1", expires, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRefreshQuery).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	id, err := s.InsertActive(context.Background(), store.RefreshRecord{ID: "r1", UserID: "u1", JTI: "j1", ExpiresAt: expires, Revoked: true})
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	_, err = s.InsertActive(context.Background(), store.RefreshRecord{ID: "r2", UserID: "u1", JTI: "j1", ExpiresAt: expires})
	require.ErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeCompareAndSet(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(revokeQuery).WithArgs(true, "r1", false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(revokeQuery).WithArgs(true, "r1", false).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Revoke(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Revoke(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeDBError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(revokeQuery).WillReturnError(context.DeadlineExceeded)

	ok, err := s.Revoke(context.Background(), "r1")
	require.False(t, ok)
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRevokeAllForUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(revokeAllQuery).WithArgs(true, false, "u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(revokeAllQuery).WithArgs(true, false, "u2").WillReturnError(errors.New("conn reset"))

	n, err := s.RevokeAllForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = s.RevokeAllForUser(context.Background(), "u2")
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
