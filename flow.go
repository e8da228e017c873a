package goReset

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goReset/internal/flows"
	"github.com/MrEthical07/goReset/internal/validate"
	"github.com/MrEthical07/goReset/otp"
	"github.com/google/uuid"
)

// Flow is one user's password-recovery attempt: request a code, verify it,
// choose a new password.
//
// Flow is safe for concurrent use. Only one mutating operation runs at a time;
// the others return [ErrFlowBusy] instead of queueing. Collaborator calls are
// made without holding the lock, so Snapshot and Countdown stay responsive
// while a call is pending. A call whose session was replaced or abandoned in
// the meantime returns [ErrFlowAbandoned] and changes nothing.
type Flow struct {
	engine *Engine

	mu      sync.Mutex
	sess    flows.ResetSession
	epoch   uint64
	busy    bool
	buffer  *otp.Buffer
	onFocus otp.FocusFunc
}

type pendingCall struct {
	epoch  uint64
	email  string
	flowID string
}

/*
====================================
REQUEST
====================================
*/

// RequestReset asks the collaborator to send a code to email and moves the
// flow to [StageRequested] with a new session.
//
// The outcome is the same generic message whether or not the address exists,
// is malformed, or the collaborator failed. A malformed address is not sent
// anywhere and leaves the stage unchanged.
func (f *Flow) RequestReset(ctx context.Context, email string) Outcome {
	if !f.ready() {
		return notReady()
	}
	e := f.engine
	email = strings.TrimSpace(email)

	if out, ok := f.acquire(); !ok {
		return out
	}
	if !validate.LooksLikeEmail(email) {
		stage := Stage(f.sess.Stage)
		flowID := f.sess.ID
		f.mu.Unlock()

		e.metricInc(MetricResetRequestMalformed)
		e.emitAudit(ctx, auditEventResetRequested, false, flowID, stage, errEmailMalformed, nil)
		return Outcome{Stage: stage, Message: MsgResetRequested}
	}

	f.epoch++
	call := pendingCall{epoch: f.epoch, email: email, flowID: uuid.NewString()}
	f.busy = true
	f.mu.Unlock()

	clientErr := e.client.RequestReset(ctx, email, false)

	if out, ok := f.complete(ctx, call, "request_reset"); !ok {
		return out
	}
	flows.StartRequest(&f.sess, call.flowID, call.epoch, email)
	f.buffer = nil
	f.mu.Unlock()

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, auditEventResetRequested, true, call.flowID, StageRequested, nil, func() map[string]string {
		return map[string]string{
			"email_fp":  emailFingerprint(email),
			"delivered": strconv.FormatBool(clientErr == nil),
		}
	})
	return Outcome{Stage: StageRequested, Message: MsgResetRequested}
}

/*
====================================
VERIFY
====================================
*/

// BeginVerification starts the code clock: the code expires CodeTTL from now,
// resend is available immediately and a fresh entry buffer is created.
func (f *Flow) BeginVerification() Outcome {
	if !f.ready() {
		return notReady()
	}
	e := f.engine
	ctx := context.Background()

	if out, ok := f.acquire(); !ok {
		return out
	}
	if err := flows.BeginVerification(&f.sess, e.now(), e.flowPolicy()); err != nil {
		return f.rejectAndUnlock(ctx, auditEventVerificationStarted, err)
	}
	f.buffer = otp.NewBuffer(e.config.Flow.OTPLength)
	flowID := f.sess.ID
	expiresAt := f.sess.CodeExpiresAt
	f.mu.Unlock()

	e.metricInc(MetricVerificationStarted)
	e.emitAudit(ctx, auditEventVerificationStarted, true, flowID, StageVerifying, nil, func() map[string]string {
		return map[string]string{"code_expires_at": expiresAt.UTC().Format(time.RFC3339)}
	})
	return Outcome{Stage: StageVerifying, Message: MsgVerifyCode}
}

// SubmitCode verifies code with the collaborator.
//
// Expired, malformed and exhausted submissions are refused locally. A
// rejection, a collaborator error and an acceptance that arrives after the
// code expired all count one attempt and return [ErrCodeInvalid].
func (f *Flow) SubmitCode(ctx context.Context, code string) Outcome {
	if !f.ready() {
		return notReady()
	}
	e := f.engine

	if out, ok := f.acquire(); !ok {
		return out
	}
	if err := flows.CheckSubmit(&f.sess, code, e.now(), e.flowPolicy()); err != nil {
		return f.rejectAndUnlock(ctx, auditEventCodeRejected, err)
	}
	call := f.beginCall()

	started := time.Now()
	accepted, clientErr := e.client.VerifyCode(ctx, call.email, code)
	e.metricObserve(MetricVerifyLatency, time.Since(started))
	if clientErr != nil {
		accepted = false
	}

	if out, ok := f.complete(ctx, call, "verify_code"); !ok {
		return out
	}
	if err := flows.ApplyVerifyResult(&f.sess, accepted, e.now()); err != nil {
		attempts := f.sess.AttemptsUsed
		stage := Stage(f.sess.Stage)
		f.mu.Unlock()

		if errors.Is(err, flows.ErrCodeExpired) {
			e.metricInc(MetricCodeExpired)
		} else {
			e.metricInc(MetricCodeRejected)
		}
		event := auditEventCodeRejected
		if attempts >= e.config.Flow.MaxAttempts {
			event = auditEventAttemptsExceeded
		}
		rootErr := mapFlowError(err)
		e.emitAudit(ctx, event, false, call.flowID, stage, rootErr, func() map[string]string {
			return map[string]string{
				"attempts_used": strconv.Itoa(attempts),
				"client_error":  strconv.FormatBool(clientErr != nil),
			}
		})
		return Outcome{Stage: stage, Message: messageFor(rootErr), Err: rootErr}
	}
	f.buffer = nil
	f.mu.Unlock()

	e.metricInc(MetricCodeAccepted)
	e.emitAudit(ctx, auditEventCodeAccepted, true, call.flowID, StageVerified, nil, nil)
	return Outcome{Stage: StageVerified, Message: MsgCodeVerified}
}

// SubmitBuffer submits the contents of the entry buffer. An incomplete buffer
// yields [ErrCodeIncomplete] without contacting the collaborator.
func (f *Flow) SubmitBuffer(ctx context.Context) Outcome {
	if !f.ready() {
		return notReady()
	}

	f.mu.Lock()
	var code string
	if f.buffer != nil {
		code, _ = f.buffer.Code()
	}
	f.mu.Unlock()

	return f.SubmitCode(ctx, code)
}

// Resend asks the collaborator for a new code once the cooldown has passed.
// On success both deadlines restart, the attempt counter resets and the entry
// buffer is cleared with focus on the first slot.
func (f *Flow) Resend(ctx context.Context) Outcome {
	if !f.ready() {
		return notReady()
	}
	e := f.engine

	if out, ok := f.acquire(); !ok {
		return out
	}
	if err := flows.CheckResend(&f.sess, e.now()); err != nil {
		return f.rejectAndUnlock(ctx, auditEventCodeResent, err)
	}
	call := f.beginCall()

	clientErr := e.client.RequestReset(ctx, call.email, true)

	if out, ok := f.complete(ctx, call, "resend"); !ok {
		return out
	}
	if clientErr != nil {
		stage := Stage(f.sess.Stage)
		f.mu.Unlock()

		e.metricInc(MetricResendFailed)
		e.emitAudit(ctx, auditEventResendFailed, false, call.flowID, stage, ErrResendFailed, nil)
		return Outcome{Stage: stage, Message: MsgResendUnavailable, Err: ErrResendFailed}
	}

	flows.ApplyResend(&f.sess, e.now(), e.flowPolicy())
	if f.buffer == nil {
		f.buffer = otp.NewBuffer(e.config.Flow.OTPLength)
	}
	st := f.buffer.Clear()
	listener := f.onFocus
	f.mu.Unlock()

	if listener != nil {
		listener(st.Focus)
	}
	e.metricInc(MetricResendSuccess)
	e.emitAudit(ctx, auditEventCodeResent, true, call.flowID, StageVerifying, nil, nil)
	return Outcome{Stage: StageVerifying, Message: MsgCodeResent}
}

/*
====================================
RESET
====================================
*/

// SubmitNewPassword checks the strength policy, then the confirmation, then
// asks the collaborator to commit. Any commit failure returns [ErrResetFailed]
// and keeps the flow in [StageVerified].
func (f *Flow) SubmitNewPassword(ctx context.Context, newPassword, confirm string) Outcome {
	if !f.ready() {
		return notReady()
	}
	e := f.engine

	if out, ok := f.acquire(); !ok {
		return out
	}
	if err := flows.CheckCommit(&f.sess); err != nil {
		return f.rejectAndUnlock(ctx, auditEventPasswordRejected, err)
	}
	if err := e.policy.Check(newPassword); err != nil {
		return f.rejectAndUnlock(ctx, auditEventPasswordRejected, ErrWeakPassword)
	}
	if newPassword != confirm {
		return f.rejectAndUnlock(ctx, auditEventPasswordRejected, ErrPasswordMismatch)
	}
	call := f.beginCall()

	clientErr := e.client.CommitPassword(ctx, call.email, newPassword)

	if out, ok := f.complete(ctx, call, "commit_password"); !ok {
		return out
	}
	if clientErr != nil {
		stage := Stage(f.sess.Stage)
		f.mu.Unlock()

		e.metricInc(MetricResetFailed)
		e.emitAudit(ctx, auditEventResetFailed, false, call.flowID, stage, ErrResetFailed, nil)
		return Outcome{Stage: stage, Message: MsgResetFailed, Err: ErrResetFailed}
	}
	flows.ApplyCommit(&f.sess)
	f.mu.Unlock()

	e.metricInc(MetricResetCommitted)
	e.emitAudit(ctx, auditEventResetCommitted, true, call.flowID, StageReset, nil, func() map[string]string {
		return map[string]string{"email_fp": emailFingerprint(call.email)}
	})
	return Outcome{Stage: StageReset, Message: MsgResetComplete}
}

// Abandon discards the session and the entry buffer. Responses still in
// flight for the discarded session are ignored when they arrive.
func (f *Flow) Abandon() Outcome {
	if f == nil {
		return Outcome{Stage: StageNone}
	}

	f.mu.Lock()
	f.epoch++
	flowID := f.sess.ID
	from := Stage(f.sess.Stage)
	f.sess = flows.ResetSession{Epoch: f.epoch}
	f.buffer = nil
	f.busy = false
	f.mu.Unlock()

	if f.engine != nil {
		f.engine.metricInc(MetricFlowAbandoned)
		f.engine.emitAudit(context.Background(), auditEventFlowAbandoned, true, flowID, StageNone, nil, func() map[string]string {
			return map[string]string{"from_stage": from.String()}
		})
	}
	return Outcome{Stage: StageNone}
}

/*
====================================
READ ACCESS
====================================
*/

// Stage returns the current stage.
func (f *Flow) Stage() Stage {
	if f == nil {
		return StageNone
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stage(f.sess.Stage)
}

// Busy reports whether a collaborator call is in flight.
func (f *Flow) Busy() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Snapshot returns a copy of the session.
func (f *Flow) Snapshot() SessionSnapshot {
	if f == nil {
		return SessionSnapshot{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	left := 0
	if f.engine != nil {
		left = f.engine.config.Flow.MaxAttempts - f.sess.AttemptsUsed
		if left < 0 {
			left = 0
		}
	}
	return SessionSnapshot{
		ID:                f.sess.ID,
		Email:             f.sess.Email,
		Stage:             Stage(f.sess.Stage),
		CodeExpiresAt:     f.sess.CodeExpiresAt,
		ResendAvailableAt: f.sess.ResendAvailableAt,
		AttemptsUsed:      f.sess.AttemptsUsed,
		AttemptsLeft:      left,
	}
}

/*
====================================
ENTRY BUFFER
====================================
*/

// OnFocus registers fn to receive focus hints from EnterDigit, DeleteDigit and
// Resend. fn runs without the Flow lock held.
func (f *Flow) OnFocus(fn otp.FocusFunc) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.onFocus = fn
	f.mu.Unlock()
}

// EnterDigit writes raw into slot index of the entry buffer. Outside
// [StageVerifying] there is no buffer and the returned State is empty.
func (f *Flow) EnterDigit(index int, raw string) otp.State {
	return f.editBuffer(func(b *otp.Buffer) otp.State {
		return b.SetDigit(index, raw)
	})
}

// DeleteDigit applies a deletion keypress on slot index.
func (f *Flow) DeleteDigit(index int) otp.State {
	return f.editBuffer(func(b *otp.Buffer) otp.State {
		return b.Backspace(index)
	})
}

// BufferState returns the entry buffer contents without changing focus.
func (f *Flow) BufferState() otp.State {
	if f == nil {
		return otp.State{Focus: otp.NoFocus}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buffer == nil {
		return otp.State{Focus: otp.NoFocus}
	}
	_, complete := f.buffer.Code()
	return otp.State{Digits: f.buffer.Digits(), Focus: otp.NoFocus, Complete: complete}
}

func (f *Flow) editBuffer(edit func(*otp.Buffer) otp.State) otp.State {
	if f == nil {
		return otp.State{Focus: otp.NoFocus}
	}
	f.mu.Lock()
	if f.buffer == nil {
		f.mu.Unlock()
		return otp.State{Focus: otp.NoFocus}
	}
	st := edit(f.buffer)
	listener := f.onFocus
	f.mu.Unlock()

	if listener != nil && st.Focus != otp.NoFocus {
		listener(st.Focus)
	}
	return st
}

/*
====================================
HELPERS
====================================
*/

func (f *Flow) ready() bool {
	return f != nil && f.engine != nil && f.engine.client != nil
}

func notReady() Outcome {
	return Outcome{Stage: StageNone, Err: ErrEngineNotReady}
}

// acquire locks f unless another operation is in flight. On success the lock
// is held and the caller must release it.
func (f *Flow) acquire() (Outcome, bool) {
	f.mu.Lock()
	if !f.busy {
		return Outcome{}, true
	}
	stage := Stage(f.sess.Stage)
	f.mu.Unlock()

	f.engine.metricInc(MetricFlowBusy)
	return Outcome{Stage: stage, Message: MsgBusy, Err: ErrFlowBusy}, false
}

// beginCall marks f busy, captures what the collaborator call needs and
// releases the lock.
func (f *Flow) beginCall() pendingCall {
	f.busy = true
	call := pendingCall{epoch: f.epoch, email: f.sess.Email, flowID: f.sess.ID}
	f.mu.Unlock()
	return call
}

// complete re-acquires the lock after a collaborator call. When the session
// moved on in the meantime the result is discarded, the lock released and ok
// is false.
func (f *Flow) complete(ctx context.Context, call pendingCall, op string) (Outcome, bool) {
	f.mu.Lock()
	if f.epoch == call.epoch {
		f.busy = false
		return Outcome{}, true
	}
	stage := Stage(f.sess.Stage)
	f.mu.Unlock()

	f.engine.metricInc(MetricStaleResponseDiscarded)
	f.engine.emitAudit(ctx, auditEventStaleResponse, false, call.flowID, stage, ErrFlowAbandoned, func() map[string]string {
		return map[string]string{"operation": op}
	})
	return Outcome{Stage: stage, Err: ErrFlowAbandoned}, false
}

// rejectAndUnlock turns a guard failure into an Outcome. It must be called
// with the lock held and releases it.
func (f *Flow) rejectAndUnlock(ctx context.Context, event string, err error) Outcome {
	e := f.engine
	rootErr := mapFlowError(err)
	if errors.Is(rootErr, ErrNoEmailContext) {
		f.buffer = nil
		event = auditEventContextLost
	}
	stage := Stage(f.sess.Stage)
	flowID := f.sess.ID
	attempts := f.sess.AttemptsUsed
	f.mu.Unlock()

	switch {
	case errors.Is(rootErr, ErrCodeIncomplete):
		e.metricInc(MetricCodeIncomplete)
	case errors.Is(rootErr, ErrCodeInvalid):
		e.metricInc(MetricCodeExpired)
	case errors.Is(rootErr, ErrAttemptsExceeded):
		e.metricInc(MetricAttemptsExceeded)
		event = auditEventAttemptsExceeded
	case errors.Is(rootErr, ErrResendCooldown):
		e.metricInc(MetricResendCooldown)
	case errors.Is(rootErr, ErrWeakPassword), errors.Is(rootErr, ErrPasswordMismatch):
		e.metricInc(MetricPasswordRejected)
	}

	e.emitAudit(ctx, event, false, flowID, stage, rootErr, func() map[string]string {
		return map[string]string{"attempts_used": strconv.Itoa(attempts)}
	})
	return Outcome{Stage: stage, Message: messageFor(rootErr), Err: rootErr}
}

func mapFlowError(err error) error {
	switch {
	case errors.Is(err, flows.ErrNoEmailContext):
		return ErrNoEmailContext
	case errors.Is(err, flows.ErrInvalidStage):
		return ErrInvalidStage
	case errors.Is(err, flows.ErrCodeIncomplete):
		return ErrCodeIncomplete
	case errors.Is(err, flows.ErrCodeExpired), errors.Is(err, flows.ErrCodeRejected):
		return ErrCodeInvalid
	case errors.Is(err, flows.ErrAttemptsExceeded):
		return ErrAttemptsExceeded
	case errors.Is(err, flows.ErrResendCooldown):
		return ErrResendCooldown
	default:
		return err
	}
}
