package flows

import (
	"errors"
	"time"
)

// Stage is the position of a reset session in the request → verify → reset sequence.
type Stage uint8

const (
	StageNone Stage = iota
	StageRequested
	StageVerifying
	StageVerified
	StageReset
)

var (
	ErrInvalidStage     = errors.New("operation not allowed in current stage")
	ErrNoEmailContext   = errors.New("missing email context")
	ErrCodeExpired      = errors.New("code expired")
	ErrCodeIncomplete   = errors.New("code incomplete")
	ErrCodeRejected     = errors.New("code rejected")
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	ErrResendCooldown   = errors.New("resend cooling down")
)

// ResetPolicy carries the timing and attempt limits of the flow.
type ResetPolicy struct {
	OTPLength      int
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

// ResetSession is the client-side mirror of one password-recovery attempt.
type ResetSession struct {
	ID                string
	Epoch             uint64
	Email             string
	Stage             Stage
	CodeExpiresAt     time.Time
	ResendAvailableAt time.Time
	AttemptsUsed      int
}

// StartRequest replaces s with a fresh session for email in the Requested stage.
func StartRequest(s *ResetSession, id string, epoch uint64, email string) {
	*s = ResetSession{
		ID:    id,
		Epoch: epoch,
		Email: email,
		Stage: StageRequested,
	}
}

// RequireEmail enforces that a stage past the request step has an email to act on.
// Without one the session is forced back to StageNone. A session that never
// left StageNone gets ErrInvalidStage instead.
func RequireEmail(s *ResetSession) error {
	if s.Stage == StageNone {
		return ErrInvalidStage
	}
	if s.Email != "" {
		return nil
	}
	epoch := s.Epoch
	*s = ResetSession{Epoch: epoch}
	return ErrNoEmailContext
}

// BeginVerification moves a Requested session to Verifying and starts the code clock.
func BeginVerification(s *ResetSession, now time.Time, p ResetPolicy) error {
	if err := RequireEmail(s); err != nil {
		return err
	}
	if s.Stage != StageRequested {
		return ErrInvalidStage
	}

	s.Stage = StageVerifying
	s.CodeExpiresAt = now.Add(p.CodeTTL)
	s.ResendAvailableAt = now
	s.AttemptsUsed = 0
	return nil
}

// CheckSubmit evaluates the local guards of a code submission. A nil result
// means the collaborator may be asked to verify code.
//
// Expiry is strict: a submission at exactly CodeExpiresAt is expired.
func CheckSubmit(s *ResetSession, code string, now time.Time, p ResetPolicy) error {
	if err := RequireEmail(s); err != nil {
		return err
	}
	if s.Stage != StageVerifying {
		return ErrInvalidStage
	}
	if !now.Before(s.CodeExpiresAt) {
		return ErrCodeExpired
	}
	if !isCode(code, p.OTPLength) {
		return ErrCodeIncomplete
	}
	if s.AttemptsUsed >= p.MaxAttempts {
		return ErrAttemptsExceeded
	}
	return nil
}

// ApplyVerifyResult records the collaborator's answer observed at now.
//
// An accept that arrives after the code expired is treated as a rejection.
// Every rejection consumes one attempt.
func ApplyVerifyResult(s *ResetSession, accepted bool, now time.Time) error {
	if s.Stage != StageVerifying {
		return ErrInvalidStage
	}

	expired := !now.Before(s.CodeExpiresAt)
	if accepted && !expired {
		s.Stage = StageVerified
		return nil
	}

	s.AttemptsUsed++
	if expired {
		return ErrCodeExpired
	}
	return ErrCodeRejected
}

// CheckResend reports whether a new code may be requested at now.
func CheckResend(s *ResetSession, now time.Time) error {
	if err := RequireEmail(s); err != nil {
		return err
	}
	if s.Stage != StageVerifying {
		return ErrInvalidStage
	}
	if now.Before(s.ResendAvailableAt) {
		return ErrResendCooldown
	}
	return nil
}

// ApplyResend restarts both deadlines and the attempt counter after a new
// code was issued.
func ApplyResend(s *ResetSession, now time.Time, p ResetPolicy) {
	s.CodeExpiresAt = now.Add(p.CodeTTL)
	s.ResendAvailableAt = now.Add(p.ResendCooldown)
	s.AttemptsUsed = 0
}

// CheckCommit reports whether a new password may be committed.
func CheckCommit(s *ResetSession) error {
	if err := RequireEmail(s); err != nil {
		return err
	}
	if s.Stage != StageVerified {
		return ErrInvalidStage
	}
	return nil
}

// ApplyCommit marks the session terminal.
func ApplyCommit(s *ResetSession) {
	s.Stage = StageReset
}

// Remaining returns the time left until the code expires and until resend
// becomes available, clamped at zero.
func Remaining(s *ResetSession, now time.Time) (code, resend time.Duration) {
	if s.Stage != StageVerifying {
		return 0, 0
	}
	return clampPositive(s.CodeExpiresAt.Sub(now)), clampPositive(s.ResendAvailableAt.Sub(now))
}

func clampPositive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func isCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
