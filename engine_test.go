package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Turbo-Dex/backend/recovery"
	"github.com/Turbo-Dex/backend/store/memory"
	redisstore "github.com/Turbo-Dex/backend/store/redis"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret")
	cfg.Password = PasswordConfig{
		Memory:         8 * 1024,
		Time:           1,
		Parallelism:    1,
		SaltLength:     16,
		KeyLength:      32,
		UpgradeOnLogin: true,
	}
	cfg.Metrics.Enabled = true
	return cfg
}

func newMemoryEngine(t *testing.T, cfg Config) (*Engine, *memory.Store, *testClock) {
	t.Helper()
	st := memory.New()
	clock := newTestClock()
	engine, err := New().WithConfig(cfg).WithStore(st).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, st, clock
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newRedisEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	engine, err := New().WithConfig(cfg).WithStore(redisstore.New(rdb, "test")).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func mustSignup(t *testing.T, e *Engine, username, password string) (Profile, string) {
	t.Helper()
	profile, code, err := e.Signup(context.Background(), username, password, "")
	if err != nil {
		t.Fatalf("signup %q failed: %v", username, err)
	}
	return profile, code
}

func mustLogin(t *testing.T, e *Engine, username, password string) (TokenPair, Profile) {
	t.Helper()
	pair, profile, err := e.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("login %q failed: %v", username, err)
	}
	return pair, profile
}

func TestSignupIsCaseInsensitivelyUnique(t *testing.T) {
	e, st, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()

	profile, code := mustSignup(t, e, "Alice", "Secret123!")
	if profile.UserID == "" || profile.Username != "Alice" || profile.DisplayName != "Alice" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(code) != recovery.DefaultLength {
		t.Fatalf("recovery code length = %d", len(code))
	}

	for _, dup := range []string{"Alice", "alice", " ALICE "} {
		if _, _, err := e.Signup(ctx, dup, "Other123!", ""); !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("signup %q: expected ErrUsernameTaken, got %v", dup, err)
		}
	}

	rec, err := st.FindByUsernameKey(ctx, "alice")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if rec.PasswordHash == "Secret123!" || !strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		t.Fatal("password must be stored as an argon2id hash")
	}
	if strings.Contains(rec.RecoveryCodeHash, code) {
		t.Fatal("recovery code must not be stored in plaintext")
	}
	if got := e.MetricsSnapshot().Counters[MetricSignupDuplicate]; got != 3 {
		t.Fatalf("duplicate metric = %d, want 3", got)
	}
}

func TestSignupKeepsDisplayName(t *testing.T) {
	e, _, _ := newMemoryEngine(t, testConfig())
	profile, _, err := e.Signup(context.Background(), "bob_99", "Secret123!", "  Bobby  ")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if profile.DisplayName != "Bobby" {
		t.Fatalf("display name = %q", profile.DisplayName)
	}
}

func TestSignupRejectsEmptyInput(t *testing.T) {
	e, _, _ := newMemoryEngine(t, testConfig())
	for _, tc := range []struct{ user, pass string }{
		{"", "Secret123!"},
		{"   ", "Secret123!"},
		{"carol", ""},
	} {
		if _, _, err := e.Signup(context.Background(), tc.user, tc.pass, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("signup(%q,%q): expected ErrInvalidInput, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestLoginIssuesPairForUser(t *testing.T) {
	e, st, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	signed, _ := mustSignup(t, e, "alice", "Secret123!")

	pair, profile := mustLogin(t, e, "ALICE", "Secret123!")
	if profile.UserID != signed.UserID {
		t.Fatalf("profile user %q, want %q", profile.UserID, signed.UserID)
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("token type = %q", pair.TokenType)
	}

	sub, err := e.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sub != signed.UserID {
		t.Fatalf("access subject %q, want %q", sub, signed.UserID)
	}

	rt, err := e.codec.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if rt.UserID != signed.UserID {
		t.Fatalf("refresh subject %q", rt.UserID)
	}
	rec, err := st.FindByUserAndJTI(ctx, rt.UserID, rt.JTI)
	if err != nil {
		t.Fatalf("ledger record: %v", err)
	}
	if rec.Revoked {
		t.Fatal("ledger record must be active after login")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e, _, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	mustSignup(t, e, "alice", "Secret123!")

	_, _, errUnknown := e.Login(ctx, "nobody", "Secret123!")
	_, _, errWrong := e.Login(ctx, "alice", "wrong-password")

	if !errors.Is(errUnknown, ErrBadCredentials) || !errors.Is(errWrong, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials twice, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown, errWrong)
	}
	if !IsAuthFailure(errUnknown) {
		t.Fatal("bad credentials must be an auth failure")
	}
	if got := e.MetricsSnapshot().Counters[MetricLoginFailure]; got != 2 {
		t.Fatalf("login failure metric = %d", got)
	}
	if _, _, err := e.Login(ctx, "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	weak, err := New().WithConfig(testConfig()).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build weak: %v", err)
	}
	defer weak.Close()
	if _, _, err := weak.Signup(ctx, "alice", "Secret123!", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}
	before, _ := st.FindByUsernameKey(ctx, "alice")

	cfg := testConfig()
	cfg.Password.Time = 2
	strong, err := New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build strong: %v", err)
	}
	defer strong.Close()
	if _, _, err := strong.Login(ctx, "alice", "Secret123!"); err != nil {
		t.Fatalf("login: %v", err)
	}

	after, _ := st.FindByUsernameKey(ctx, "alice")
	if after.PasswordHash == before.PasswordHash {
		t.Fatal("hash must be rewritten with current parameters")
	}
	if !strings.Contains(after.PasswordHash, "t=2") {
		t.Fatalf("unexpected upgraded hash %q", after.PasswordHash)
	}
	if got := strong.MetricsSnapshot().Counters[MetricPasswordRehashed]; got != 1 {
		t.Fatalf("rehash metric = %d", got)
	}
	if _, _, err := weak.Login(ctx, "alice", "Secret123!"); err != nil {
		t.Fatalf("old parameters must still verify upgraded hash: %v", err)
	}
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	e, st, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	profile, _ := mustSignup(t, e, "alice", "Secret123!")
	first, _ := mustLogin(t, e, "alice", "Secret123!")

	second, err := e.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh must return a new refresh token")
	}
	if _, err := e.Authenticate(ctx, second.AccessToken); err != nil {
		t.Fatalf("rotated access token: %v", err)
	}

	_, err = e.Refresh(ctx, first.RefreshToken)
	if !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}
	if !IsAuthFailure(err) {
		t.Fatal("reuse must be an auth failure")
	}
	if n := st.ActiveCount(profile.UserID); n != 0 {
		t.Fatalf("active records after reuse = %d, want 0", n)
	}
	if _, err := e.Refresh(ctx, second.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("successor must be revoked with the chain, got %v", err)
	}

	snap := e.MetricsSnapshot()
	if snap.Counters[MetricRefreshSuccess] != 1 || snap.Counters[MetricRefreshReuseDetected] != 2 {
		t.Fatalf("unexpected refresh metrics %v", snap.Counters)
	}
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	e, _, clock := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	mustSignup(t, e, "alice", "Secret123!")
	pair, _ := mustLogin(t, e, "alice", "Secret123!")

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "garbage",
		"access token": pair.AccessToken,
		"tampered":     pair.RefreshToken[:len(pair.RefreshToken)-2] + "xx",
	} {
		if _, err := e.Refresh(ctx, tok); !errors.Is(err, ErrInvalidRefresh) || errors.Is(err, ErrReuseDetected) {
			t.Fatalf("%s: expected ErrInvalidRefresh, got %v", name, err)
		}
	}

	clock.Advance(e.config.JWT.RefreshTTL + time.Hour)
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expired token: expected ErrInvalidRefresh, got %v", err)
	}
}

func TestAuthenticateDistinguishesFailures(t *testing.T) {
	e, _, clock := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	mustSignup(t, e, "alice", "Secret123!")
	pair, _ := mustLogin(t, e, "alice", "Secret123!")

	if _, err := e.Authenticate(ctx, ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("empty: expected ErrTokenMissing, got %v", err)
	}
	if _, err := e.Authenticate(ctx, "   "); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("blank: expected ErrTokenMissing, got %v", err)
	}
	if _, err := e.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh as access: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := e.Authenticate(ctx, pair.AccessToken+"x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered: expected ErrTokenInvalid, got %v", err)
	}

	clock.Advance(e.config.JWT.AccessTTL + e.config.JWT.Leeway + time.Second)
	if _, err := e.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: expected ErrTokenExpired, got %v", err)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	e, st, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	profile, _ := mustSignup(t, e, "alice", "Secret123!")
	pair, _ := mustLogin(t, e, "alice", "Secret123!")

	for _, tok := range []string{"", "garbage", pair.RefreshToken, pair.RefreshToken} {
		if err := e.Logout(ctx, tok); err != nil {
			t.Fatalf("logout returned %v", err)
		}
	}
	if n := st.ActiveCount(profile.UserID); n != 0 {
		t.Fatalf("active records after logout = %d", n)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("refresh after logout: expected ErrReuseDetected, got %v", err)
	}
}

func TestResetPasswordDefaults(t *testing.T) {
	e, st, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()
	profile, code := mustSignup(t, e, "alice", "Secret123!")
	pair, _ := mustLogin(t, e, "alice", "Secret123!")

	if err := e.ResetPassword(ctx, "nobody", code, "NewSecret1!"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := e.ResetPassword(ctx, "alice", "AAAAAAAAAAAA", "NewSecret1!"); !errors.Is(err, ErrBadRecoveryCode) {
		t.Fatalf("expected ErrBadRecoveryCode, got %v", err)
	}
	if err := e.ResetPassword(ctx, "alice", code, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	res, err := e.ResetPasswordWithResult(ctx, "Alice", strings.ToLower(code), "NewSecret1!")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res.RecoveryCode != "" || res.SessionsRevoked != 0 {
		t.Fatalf("defaults must not rotate or revoke: %+v", res)
	}

	if _, _, err := e.Login(ctx, "alice", "Secret123!"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password must fail, got %v", err)
	}
	mustLogin(t, e, "alice", "NewSecret1!")

	if n := st.ActiveCount(profile.UserID); n != 2 {
		t.Fatalf("sessions must survive a default reset, active = %d", n)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("pre-reset refresh token must keep working: %v", err)
	}
	if err := e.ResetPassword(ctx, "alice", code, "Third123!"); err != nil {
		t.Fatalf("recovery code must stay valid without rotation: %v", err)
	}
}

func TestResetAcceptsCodeIssuedUnderEarlierLength(t *testing.T) {
	st := memory.New()
	build := func(length int) *Engine {
		cfg := testConfig()
		cfg.Recovery.CodeLength = length
		e, err := New().WithConfig(cfg).WithStore(st).Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		t.Cleanup(e.Close)
		return e
	}

	before := build(12)
	_, code := mustSignup(t, before, "alice", "Secret123!")

	after := build(16)
	if err := after.ResetPassword(context.Background(), "alice", code, "NewSecret1!"); err != nil {
		t.Fatalf("reset with a code from the previous length: %v", err)
	}
	mustLogin(t, after, "alice", "NewSecret1!")
}

func TestResetPasswordRotatesAndRevokesWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Reset.RevokeSessions = true
	cfg.Reset.RotateRecoveryCode = true
	e, st, _ := newMemoryEngine(t, cfg)
	ctx := context.Background()
	profile, code := mustSignup(t, e, "alice", "Secret123!")
	mustLogin(t, e, "alice", "Secret123!")
	mustLogin(t, e, "alice", "Secret123!")

	res, err := e.ResetPasswordWithResult(ctx, "alice", code, "NewSecret1!")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(res.RecoveryCode) != recovery.DefaultLength || res.RecoveryCode == code {
		t.Fatalf("expected a fresh recovery code, got %q", res.RecoveryCode)
	}
	if res.SessionsRevoked != 2 || st.ActiveCount(profile.UserID) != 0 {
		t.Fatalf("sessions revoked = %d, active = %d", res.SessionsRevoked, st.ActiveCount(profile.UserID))
	}
	if err := e.ResetPassword(ctx, "alice", code, "Other123!"); !errors.Is(err, ErrBadRecoveryCode) {
		t.Fatalf("old code must be rejected, got %v", err)
	}
	if err := e.ResetPassword(ctx, "alice", res.RecoveryCode, "Other123!"); err != nil {
		t.Fatalf("new code must work: %v", err)
	}
}

func TestAliceScenario(t *testing.T) {
	e, _, _ := newMemoryEngine(t, testConfig())
	ctx := context.Background()

	profile, code := mustSignup(t, e, "alice", "Secret123!")
	if _, _, err := e.Signup(ctx, "ALICE", "Secret123!", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	p1, _ := mustLogin(t, e, "alice", "Secret123!")
	if uid, err := e.Authenticate(ctx, p1.AccessToken); err != nil || uid != profile.UserID {
		t.Fatalf("authenticate p1: %q %v", uid, err)
	}

	p2, err := e.Refresh(ctx, p1.RefreshToken)
	if err != nil {
		t.Fatalf("refresh p1: %v", err)
	}
	if _, err := e.Refresh(ctx, p1.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("replay p1: expected ErrReuseDetected, got %v", err)
	}
	if _, err := e.Refresh(ctx, p2.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("p2 after replay: expected ErrReuseDetected, got %v", err)
	}

	p3, _ := mustLogin(t, e, "alice", "Secret123!")
	if err := e.Logout(ctx, p3.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if err := e.ResetPassword(ctx, "alice", code, "Changed456!"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := e.Login(ctx, "alice", "Secret123!"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password: expected ErrBadCredentials, got %v", err)
	}
	mustLogin(t, e, "alice", "Changed456!")
}

func TestStoreUnavailableIsDistinct(t *testing.T) {
	e, mr := newRedisEngine(t, testConfig())
	ctx := context.Background()
	mustSignup(t, e, "alice", "Secret123!")
	pair, _ := mustLogin(t, e, "alice", "Secret123!")

	mr.Close()

	_, _, err := e.Login(ctx, "alice", "Secret123!")
	if !errors.Is(err, ErrStoreUnavailable) || IsAuthFailure(err) {
		t.Fatalf("login: expected ErrStoreUnavailable, got %v", err)
	}
	if _, _, err := e.Signup(ctx, "bob", "Secret123!", ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("signup: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) || IsAuthFailure(err) {
		t.Fatalf("refresh: expected ErrStoreUnavailable, got %v", err)
	}
	if err := e.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout must hide store failures, got %v", err)
	}
	if _, err := e.Authenticate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("authenticate needs no store: %v", err)
	}
	if got := e.MetricsSnapshot().Counters[MetricStoreUnavailable]; got != 4 {
		t.Fatalf("store unavailable metric = %d, want 4", got)
	}
}

func TestEngineNotReady(t *testing.T) {
	var nilEngine *Engine
	if _, _, err := nilEngine.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("nil engine: expected ErrEngineNotReady, got %v", err)
	}

	e, _, _ := newMemoryEngine(t, testConfig())
	e.Close()
	if _, err := e.Authenticate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("closed engine: expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background(), "x"); err != nil {
		t.Fatalf("logout on closed engine must stay silent, got %v", err)
	}
}

func TestBuilderRequiresStoresAndValidConfig(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("missing stores must fail")
	}
	if _, err := New().WithConfig(DefaultConfig()).WithStore(memory.New()).Build(); err == nil {
		t.Fatal("missing secrets must fail")
	}

	b := New().WithConfig(testConfig()).WithUserStore(memory.New()).WithRefreshStore(memory.New())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("split stores: %v", err)
	}
	e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build must fail")
	}
}

func TestLogsNeverCarrySecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	st := memory.New()
	e, err := New().WithConfig(testConfig()).WithStore(st).WithLogger(zap.New(core)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	_, code, _ := e.Signup(ctx, "alice", "Secret123!", "")
	pair, _, _ := e.Login(ctx, "alice", "Secret123!")
	_, _, _ = e.Login(ctx, "alice", "wrong-password")
	next, _ := e.Refresh(ctx, pair.RefreshToken)
	_, _ = e.Refresh(ctx, pair.RefreshToken)
	_, _ = e.Refresh(ctx, "garbage")
	_ = e.ResetPassword(ctx, "alice", code, "NewSecret1!")

	var sawReuse, sawInvalid bool
	forbidden := []string{"Secret123!", "wrong-password", "NewSecret1!", code, pair.RefreshToken, pair.AccessToken, next.RefreshToken, "test-access-secret", "test-refresh-secret"}
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		if fields["reason"] == "reuse_detected" && entry.Level == zapcore.WarnLevel {
			sawReuse = true
		}
		if fields["reason"] == "invalid_refresh" && entry.Level == zapcore.WarnLevel {
			sawInvalid = true
		}
		line := entry.Message
		for _, v := range fields {
			if s, ok := v.(string); ok {
				line += " " + s
			}
		}
		for _, secret := range forbidden {
			if secret != "" && strings.Contains(line, secret) {
				t.Fatalf("log entry %q leaks a secret", entry.Message)
			}
		}
	}
	if !sawReuse || !sawInvalid {
		t.Fatalf("refresh failures must be logged distinctly (reuse=%v invalid=%v)", sawReuse, sawInvalid)
	}
}
