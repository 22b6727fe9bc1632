package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Turbo-Dex/backend/store/memory"
)

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(ctx context.Context, _ AuditEvent) {
	select {
	case <-s.gate:
	case <-ctx.Done():
	}
}

func newAuditEngine(t *testing.T, sink AuditSink, buffer int) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = buffer
	cfg.Audit.DropIfFull = true

	engine, err := New().WithConfig(cfg).WithStore(memory.New()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditEventsFollowOutcomes(t *testing.T) {
	sink := NewChannelSink(16)
	engine := newAuditEngine(t, sink, 16)
	defer engine.Close()
	ctx := context.Background()

	profile, code := mustSignup(t, engine, "alice", "Secret123!")
	ev := nextEvent(t, sink)
	if ev.Type != AuditSignup || ev.UserID != profile.UserID || !ev.Success {
		t.Fatalf("unexpected signup event %+v", ev)
	}

	if _, _, err := engine.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	ev = nextEvent(t, sink)
	if ev.Type != AuditLoginFailure || ev.Success {
		t.Fatalf("unexpected login failure event %+v", ev)
	}

	pair, _ := mustLogin(t, engine, "alice", "Secret123!")
	if ev = nextEvent(t, sink); ev.Type != AuditLoginSuccess {
		t.Fatalf("expected login success event, got %+v", ev)
	}

	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if ev = nextEvent(t, sink); ev.Type != AuditRefreshSuccess {
		t.Fatalf("expected refresh success event, got %+v", ev)
	}

	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected reuse detection, got %v", err)
	}
	ev = nextEvent(t, sink)
	if ev.Type != AuditRefreshReuseDetected || ev.UserID != profile.UserID || ev.Reason != "reuse_detected" {
		t.Fatalf("unexpected reuse event %+v", ev)
	}

	for _, secret := range []string{"Secret123!", code, pair.RefreshToken, pair.AccessToken} {
		if strings.Contains(ev.Reason, secret) || strings.Contains(ev.JTI, secret) {
			t.Fatal("audit event carries a secret")
		}
	}
}

func TestAuditDropsWhenBufferFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	engine := newAuditEngine(t, sink, 1)

	for i := 0; i < 8; i++ {
		_, _, _ = engine.Login(context.Background(), "nobody", "Secret123!")
	}

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events with a blocked sink")
	}
	close(sink.gate)
	engine.Close()
}

func TestAuditDisabledByDefault(t *testing.T) {
	sink := NewChannelSink(4)
	engine, err := New().WithConfig(testConfig()).WithStore(memory.New()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	mustSignup(t, engine, "bob", "Secret123!")
	select {
	case ev := <-sink.Events():
		t.Fatalf("audit disabled but got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("disabled audit must not count drops")
	}
}
