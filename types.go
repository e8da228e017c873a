package goReset

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goReset/internal/audit"
	"github.com/MrEthical07/goReset/internal/flows"
	internalmetrics "github.com/MrEthical07/goReset/internal/metrics"
)

// Stage is the position of a [Flow] in the request → verify → reset sequence.
// Stages only move forward; Abandon and a new RequestReset start over.
type Stage uint8

const (
	// StageNone is the initial stage, before any reset was requested.
	StageNone = Stage(flows.StageNone)
	// StageRequested means a code was requested for an email.
	StageRequested = Stage(flows.StageRequested)
	// StageVerifying means the code clock is running and codes may be submitted.
	StageVerifying = Stage(flows.StageVerifying)
	// StageVerified means the code was accepted and a new password may be set.
	StageVerified = Stage(flows.StageVerified)
	// StageReset is terminal: the password was changed.
	StageReset = Stage(flows.StageReset)
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageRequested:
		return "requested"
	case StageVerifying:
		return "verifying"
	case StageVerified:
		return "verified"
	case StageReset:
		return "reset"
	default:
		return "unknown"
	}
}

// OTPClient is the collaborator that issues and checks codes and commits the
// new password. Implementations may perform network I/O; the Flow never holds
// its lock while calling them.
//
// RequestReset errors are never surfaced to the user. A VerifyCode error is
// treated as a rejection. Any CommitPassword error becomes [ErrResetFailed].
type OTPClient interface {
	RequestReset(ctx context.Context, email string, force bool) error
	VerifyCode(ctx context.Context, email, code string) (bool, error)
	CommitPassword(ctx context.Context, email, newPassword string) error
}

// OTPClientFuncs adapts plain functions to [OTPClient]. A nil field behaves as
// a collaborator that fails the call.
type OTPClientFuncs struct {
	RequestResetFunc   func(ctx context.Context, email string, force bool) error
	VerifyCodeFunc     func(ctx context.Context, email, code string) (bool, error)
	CommitPasswordFunc func(ctx context.Context, email, newPassword string) error
}

func (f OTPClientFuncs) RequestReset(ctx context.Context, email string, force bool) error {
	if f.RequestResetFunc == nil {
		return errClientUnavailable
	}
	return f.RequestResetFunc(ctx, email, force)
}

func (f OTPClientFuncs) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	if f.VerifyCodeFunc == nil {
		return false, errClientUnavailable
	}
	return f.VerifyCodeFunc(ctx, email, code)
}

func (f OTPClientFuncs) CommitPassword(ctx context.Context, email, newPassword string) error {
	if f.CommitPasswordFunc == nil {
		return errClientUnavailable
	}
	return f.CommitPasswordFunc(ctx, email, newPassword)
}

// Outcome is the result of every mutating [Flow] operation. Err is nil or one
// of the package sentinel errors; Message is safe to show to the user.
type Outcome struct {
	Stage   Stage
	Message string
	Err     error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// SessionSnapshot is a read-only copy of a Flow's session.
type SessionSnapshot struct {
	ID                string
	Email             string
	Stage             Stage
	CodeExpiresAt     time.Time
	ResendAvailableAt time.Time
	AttemptsUsed      int
	AttemptsLeft      int
}

// Countdown is the display value of both timers. Guards never read it.
type Countdown struct {
	CodeRemaining   time.Duration
	ResendRemaining time.Duration
	CodeExpired     bool
	CanResend       bool
}

// AuditEvent is a structured audit record emitted by a [Flow].
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that writes events through a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]; a nil logger uses [slog.Default].
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricResetRequested         = MetricID(internalmetrics.MetricResetRequested)
	MetricResetRequestMalformed  = MetricID(internalmetrics.MetricResetRequestMalformed)
	MetricVerificationStarted    = MetricID(internalmetrics.MetricVerificationStarted)
	MetricCodeAccepted           = MetricID(internalmetrics.MetricCodeAccepted)
	MetricCodeRejected           = MetricID(internalmetrics.MetricCodeRejected)
	MetricCodeExpired            = MetricID(internalmetrics.MetricCodeExpired)
	MetricCodeIncomplete         = MetricID(internalmetrics.MetricCodeIncomplete)
	MetricAttemptsExceeded       = MetricID(internalmetrics.MetricAttemptsExceeded)
	MetricResendSuccess          = MetricID(internalmetrics.MetricResendSuccess)
	MetricResendCooldown         = MetricID(internalmetrics.MetricResendCooldown)
	MetricResendFailed           = MetricID(internalmetrics.MetricResendFailed)
	MetricPasswordRejected       = MetricID(internalmetrics.MetricPasswordRejected)
	MetricResetCommitted         = MetricID(internalmetrics.MetricResetCommitted)
	MetricResetFailed            = MetricID(internalmetrics.MetricResetFailed)
	MetricFlowBusy               = MetricID(internalmetrics.MetricFlowBusy)
	MetricFlowAbandoned          = MetricID(internalmetrics.MetricFlowAbandoned)
	MetricStaleResponseDiscarded = MetricID(internalmetrics.MetricStaleResponseDiscarded)
	MetricVerifyLatency          = MetricID(internalmetrics.MetricVerifyLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and the optional verify latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
