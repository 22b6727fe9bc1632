package auth

import (
	"io"

	"go.uber.org/zap"

	"github.com/Turbo-Dex/backend/internal/audit"
)

// AuditEvent is one security-relevant outcome. It never carries secrets or tokens.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink writes audit events to a zap logger.
type ZapSink = audit.ZapSink

// Audit event types.
const (
	AuditSignup               = audit.TypeSignup
	AuditLoginSuccess         = audit.TypeLoginSuccess
	AuditLoginFailure         = audit.TypeLoginFailure
	AuditRefreshSuccess       = audit.TypeRefreshSuccess
	AuditRefreshInvalid       = audit.TypeRefreshInvalid
	AuditRefreshReuseDetected = audit.TypeRefreshReuseDetected
	AuditLogout               = audit.TypeLogout
	AuditResetSuccess         = audit.TypeResetSuccess
	AuditResetFailure         = audit.TypeResetFailure
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewZapSink(log *zap.Logger) *ZapSink { return audit.NewZapSink(log) }
