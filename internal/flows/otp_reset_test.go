package flows

import (
	"errors"
	"testing"
	"time"
)

var testPolicy = ResetPolicy{
	OTPLength:      6,
	CodeTTL:        300 * time.Second,
	ResendCooldown: 45 * time.Second,
	MaxAttempts:    5,
}

func verifyingSession(t *testing.T, now time.Time) *ResetSession {
	t.Helper()
	var s ResetSession
	StartRequest(&s, "sid", 1, "user@example.com")
	if err := BeginVerification(&s, now, testPolicy); err != nil {
		t.Fatalf("BeginVerification failed: %v", err)
	}
	return &s
}

func TestBeginVerificationStartsClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)

	if s.Stage != StageVerifying {
		t.Fatalf("expected StageVerifying, got %d", s.Stage)
	}
	if !s.CodeExpiresAt.Equal(now.Add(300 * time.Second)) {
		t.Fatalf("unexpected expiry %v", s.CodeExpiresAt)
	}
	if !s.ResendAvailableAt.Equal(now) {
		t.Fatalf("expected resend available immediately, got %v", s.ResendAvailableAt)
	}
}

func TestBeginVerificationWithoutEmailResets(t *testing.T) {
	s := ResetSession{Epoch: 7, Stage: StageRequested}

	if err := BeginVerification(&s, time.Now(), testPolicy); !errors.Is(err, ErrNoEmailContext) {
		t.Fatalf("expected ErrNoEmailContext, got %v", err)
	}
	if s.Stage != StageNone || s.Epoch != 7 {
		t.Fatalf("expected reset to StageNone keeping epoch, got %+v", s)
	}
}

func TestStageNoneIsInvalidStage(t *testing.T) {
	var s ResetSession

	if err := BeginVerification(&s, time.Now(), testPolicy); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
	if err := CheckCommit(&s); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestCheckSubmitGuardOrder(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)

	if err := CheckSubmit(s, "12345", now, testPolicy); !errors.Is(err, ErrCodeIncomplete) {
		t.Fatalf("expected ErrCodeIncomplete, got %v", err)
	}
	if err := CheckSubmit(s, "12a456", now, testPolicy); !errors.Is(err, ErrCodeIncomplete) {
		t.Fatalf("expected ErrCodeIncomplete for non-digit, got %v", err)
	}

	s.AttemptsUsed = testPolicy.MaxAttempts
	if err := CheckSubmit(s, "123456", now, testPolicy); !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("expected ErrAttemptsExceeded, got %v", err)
	}

	if err := CheckSubmit(s, "123456", s.CodeExpiresAt, testPolicy); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected expiry to win at the boundary, got %v", err)
	}
}

func TestCheckSubmitWrongStage(t *testing.T) {
	var s ResetSession
	StartRequest(&s, "sid", 1, "user@example.com")

	if err := CheckSubmit(&s, "123456", time.Now(), testPolicy); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestApplyVerifyResult(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	s := verifyingSession(t, now)
	if err := ApplyVerifyResult(s, false, now); !errors.Is(err, ErrCodeRejected) {
		t.Fatalf("expected ErrCodeRejected, got %v", err)
	}
	if s.AttemptsUsed != 1 {
		t.Fatalf("expected 1 attempt, got %d", s.AttemptsUsed)
	}

	if err := ApplyVerifyResult(s, true, now.Add(time.Second)); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	if s.Stage != StageVerified {
		t.Fatalf("expected StageVerified, got %d", s.Stage)
	}
}

func TestApplyVerifyResultLateAcceptIsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)

	err := ApplyVerifyResult(s, true, s.CodeExpiresAt)
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if s.Stage != StageVerifying || s.AttemptsUsed != 1 {
		t.Fatalf("expected stay in Verifying with one attempt, got %+v", s)
	}
}

func TestResendCooldown(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)
	s.AttemptsUsed = 3

	if err := CheckResend(s, now); err != nil {
		t.Fatalf("expected first resend allowed, got %v", err)
	}
	later := now.Add(10 * time.Second)
	ApplyResend(s, later, testPolicy)

	if s.AttemptsUsed != 0 {
		t.Fatalf("expected attempts reset, got %d", s.AttemptsUsed)
	}
	if !s.CodeExpiresAt.Equal(later.Add(300*time.Second)) || !s.ResendAvailableAt.Equal(later.Add(45*time.Second)) {
		t.Fatalf("unexpected deadlines %+v", s)
	}

	if err := CheckResend(s, later.Add(44*time.Second)); !errors.Is(err, ErrResendCooldown) {
		t.Fatalf("expected ErrResendCooldown, got %v", err)
	}
	if err := CheckResend(s, later.Add(45*time.Second)); err != nil {
		t.Fatalf("expected resend at the cooldown boundary, got %v", err)
	}
}

func TestCommitOnlyFromVerified(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)

	if err := CheckCommit(s); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}

	if err := ApplyVerifyResult(s, true, now); err != nil {
		t.Fatalf("ApplyVerifyResult failed: %v", err)
	}
	if err := CheckCommit(s); err != nil {
		t.Fatalf("expected commit allowed, got %v", err)
	}
	ApplyCommit(s)
	if s.Stage != StageReset {
		t.Fatalf("expected StageReset, got %d", s.Stage)
	}
}

func TestRemainingClamps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := verifyingSession(t, now)

	code, resend := Remaining(s, now.Add(time.Minute))
	if code != 4*time.Minute || resend != 0 {
		t.Fatalf("unexpected remaining code=%v resend=%v", code, resend)
	}

	code, _ = Remaining(s, now.Add(time.Hour))
	if code != 0 {
		t.Fatalf("expected clamp to zero, got %v", code)
	}
}
