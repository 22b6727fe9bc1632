// Package redis implements the store contracts on Redis. Every multi-key mutation runs
// as a Lua script so uniqueness checks and the revoke compare-and-set are atomic.
//
// Key layout under prefix p:
//
//	p:user:<id>              hash   user credential record
//	p:uname:<username_key>   string user id
//	p:rt:<id>                hash   refresh record
//	p:rtj:<user_id>:<jti>    string refresh record id
//	p:urt:<user_id>          set    refresh record ids of a user
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Turbo-Dex/backend/store"
)

// DefaultPrefix namespaces keys when no prefix is given.
const DefaultPrefix = "tdx"

const insertUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2],
  "id", ARGV[1],
  "username", ARGV[2],
  "username_key", ARGV[3],
  "display_name", ARGV[4],
  "password_hash", ARGV[5],
  "recovery_code_hash", ARGV[6],
  "created_at", ARGV[7])
return 1
`

const updateFieldScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

const insertRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2],
  "id", ARGV[1],
  "user_id", ARGV[2],
  "jti", ARGV[3],
  "expires_at", ARGV[4],
  "revoked", "0",
  "created_at", ARGV[5])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

const revokeScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked then
  return -1
end
if revoked == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`

// Record keys are derived from set members, so this script is single-node only.
const revokeAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local changed = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  local revoked = redis.call("HGET", key, "revoked")
  if revoked == "0" then
    redis.call("HSET", key, "revoked", "1")
    changed = changed + 1
  elseif not revoked then
    redis.call("SREM", KEYS[1], id)
  end
end
return changed
`

var (
	insertUserLua    = redis.NewScript(insertUserScript)
	updateFieldLua   = redis.NewScript(updateFieldScript)
	insertRefreshLua = redis.NewScript(insertRefreshScript)
	revokeLua        = redis.NewScript(revokeScript)
	revokeAllLua     = redis.NewScript(revokeAllScript)
)

// Store implements store.UserStore and store.RefreshTokenStore on Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

var (
	_ store.UserStore         = (*Store)(nil)
	_ store.RefreshTokenStore = (*Store)(nil)
)

// New returns a Store using client. An empty prefix selects DefaultPrefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) usernameKey(key string) string {
	return s.prefix + ":uname:" + key
}

func (s *Store) refreshKey(id string) string {
	return s.prefix + ":rt:" + id
}

func (s *Store) userRefreshSetKey(userID string) string {
	return s.prefix + ":urt:" + userID
}

func (s *Store) jtiKey(userID, jti string) string {
	return s.prefix + ":rtj:" + userID + ":" + jti
}

// Ping checks connectivity and returns the round-trip time.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), store.Unavailable(err)
	}
	return time.Since(start), nil
}

// FindByUsernameKey implements store.UserStore.
func (s *Store) FindByUsernameKey(ctx context.Context, key string) (store.UserRecord, error) {
	id, err := s.redis.Get(ctx, s.usernameKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.UserRecord{}, store.ErrNotFound
		}
		return store.UserRecord{}, store.Unavailable(err)
	}

	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return store.UserRecord{}, store.Unavailable(err)
	}
	if len(fields) == 0 {
		return store.UserRecord{}, store.ErrNotFound
	}

	return store.UserRecord{
		ID:               fields["id"],
		Username:         fields["username"],
		UsernameKey:      fields["username_key"],
		DisplayName:      fields["display_name"],
		PasswordHash:     fields["password_hash"],
		RecoveryCodeHash: fields["recovery_code_hash"],
		CreatedAt:        parseMillis(fields["created_at"]),
	}, nil
}

// Insert implements store.UserStore.
func (s *Store) Insert(ctx context.Context, rec store.UserRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	created, err := insertUserLua.Run(
		ctx,
		s.redis,
		[]string{s.usernameKey(rec.UsernameKey), s.userKey(rec.ID)},
		rec.ID,
		rec.Username,
		rec.UsernameKey,
		rec.DisplayName,
		rec.PasswordHash,
		rec.RecoveryCodeHash,
		formatMillis(rec.CreatedAt),
	).Int64()
	if err != nil {
		return "", store.Unavailable(err)
	}
	if created == 0 {
		return "", store.ErrDuplicate
	}
	return rec.ID, nil
}

// UpdatePasswordHash implements store.UserStore.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateUserField(ctx, id, "password_hash", hash)
}

// UpdateRecoveryCodeHash implements store.UserStore.
func (s *Store) UpdateRecoveryCodeHash(ctx context.Context, id, hash string) error {
	return s.updateUserField(ctx, id, "recovery_code_hash", hash)
}

func (s *Store) updateUserField(ctx context.Context, id, field, value string) error {
	updated, err := updateFieldLua.Run(ctx, s.redis, []string{s.userKey(id)}, field, value).Int64()
	if err != nil {
		return store.Unavailable(err)
	}
	if updated == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FindByUserAndJTI implements store.RefreshTokenStore.
func (s *Store) FindByUserAndJTI(ctx context.Context, userID, jti string) (store.RefreshRecord, error) {
	id, err := s.redis.Get(ctx, s.jtiKey(userID, jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.RefreshRecord{}, store.ErrNotFound
		}
		return store.RefreshRecord{}, store.Unavailable(err)
	}

	fields, err := s.redis.HGetAll(ctx, s.refreshKey(id)).Result()
	if err != nil {
		return store.RefreshRecord{}, store.Unavailable(err)
	}
	if len(fields) == 0 {
		return store.RefreshRecord{}, store.ErrNotFound
	}

	return store.RefreshRecord{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		JTI:       fields["jti"],
		ExpiresAt: parseMillis(fields["expires_at"]),
		Revoked:   fields["revoked"] != "0",
		CreatedAt: parseMillis(fields["created_at"]),
	}, nil
}

// InsertActive implements store.RefreshTokenStore.
func (s *Store) InsertActive(ctx context.Context, rec store.RefreshRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	created, err := insertRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.jtiKey(rec.UserID, rec.JTI), s.refreshKey(rec.ID), s.userRefreshSetKey(rec.UserID)},
		rec.ID,
		rec.UserID,
		rec.JTI,
		formatMillis(rec.ExpiresAt),
		formatMillis(rec.CreatedAt),
	).Int64()
	if err != nil {
		return "", store.Unavailable(err)
	}
	if created == 0 {
		return "", store.ErrDuplicate
	}
	return rec.ID, nil
}

// Revoke implements store.RefreshTokenStore.
func (s *Store) Revoke(ctx context.Context, id string) (bool, error) {
	status, err := revokeLua.Run(ctx, s.redis, []string{s.refreshKey(id)}).Int64()
	if err != nil {
		return false, store.Unavailable(err)
	}
	return status == 1, nil
}

// RevokeAllForUser implements store.RefreshTokenStore.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	changed, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.userRefreshSetKey(userID)},
		s.prefix+":rt:",
	).Int64()
	if err != nil {
		return 0, store.Unavailable(err)
	}
	return changed, nil
}

func formatMillis(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
