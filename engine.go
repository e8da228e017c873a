package goReset

import (
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goReset/internal/audit"
	"github.com/MrEthical07/goReset/internal/flows"
	"github.com/MrEthical07/goReset/otp"
	"github.com/MrEthical07/goReset/password"
)

// Engine holds the shared, immutable parts of every reset flow: configuration,
// collaborator, clock, password policy, audit dispatcher and metrics.
//
// Engine is safe for concurrent use. Each user-facing recovery attempt gets
// its own [Flow] from NewFlow.
type Engine struct {
	config  Config
	client  OTPClient
	now     func() time.Time
	policy  *password.Policy
	audit   *internalaudit.Dispatcher
	metrics *Metrics
}

// NewFlow returns a Flow in [StageNone].
func (e *Engine) NewFlow() *Flow {
	return &Flow{engine: e}
}

// ResumeFlow rebuilds a Flow from a snapshot taken by [Flow.Snapshot], for
// front ends that carry the session from one screen to the next. The entry
// buffer starts empty. A snapshot past [StageNone] without an email makes the
// next operation fail with [ErrNoEmailContext] and restart the flow.
func (e *Engine) ResumeFlow(snap SessionSnapshot) *Flow {
	f := e.NewFlow()
	if snap.Stage > StageReset {
		return f
	}

	f.epoch = 1
	f.sess = flows.ResetSession{
		ID:                snap.ID,
		Epoch:             f.epoch,
		Email:             strings.TrimSpace(snap.Email),
		Stage:             flows.Stage(snap.Stage),
		CodeExpiresAt:     snap.CodeExpiresAt,
		ResendAvailableAt: snap.ResendAvailableAt,
		AttemptsUsed:      snap.AttemptsUsed,
	}
	if snap.Stage == StageVerifying {
		f.buffer = otp.NewBuffer(e.config.Flow.OTPLength)
	}
	return f
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// PasswordRequirements evaluates pwd against the strength policy for live
// checklist hints. It does not touch any flow.
func (e *Engine) PasswordRequirements(pwd string) password.Requirements {
	if e == nil || e.policy == nil {
		return password.Requirements{}
	}
	return e.policy.Requirements(pwd)
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) flowPolicy() flows.ResetPolicy {
	return flows.ResetPolicy{
		OTPLength:      e.config.Flow.OTPLength,
		CodeTTL:        e.config.Flow.CodeTTL,
		ResendCooldown: e.config.Flow.ResendCooldown,
		MaxAttempts:    e.config.Flow.MaxAttempts,
	}
}
