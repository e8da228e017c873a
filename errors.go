package goReset

import "errors"

var (
	// ErrEngineNotReady is returned by a Flow that was not created by a built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrFlowBusy is returned while another mutating operation on the same Flow is in flight.
	ErrFlowBusy = errors.New("flow busy")
	// ErrFlowAbandoned is returned when the session changed while a collaborator call was pending.
	ErrFlowAbandoned = errors.New("flow abandoned")
	// ErrInvalidStage is returned when an operation is not allowed in the current stage.
	ErrInvalidStage = errors.New("operation not allowed in current stage")
	// ErrNoEmailContext is returned when a stage past the request has no email; the flow restarts.
	ErrNoEmailContext = errors.New("missing email context")
	// ErrCodeIncomplete is returned for a code with the wrong length or non-digit characters.
	ErrCodeIncomplete = errors.New("verification code incomplete")
	// ErrCodeInvalid covers rejected, expired and unverifiable codes alike.
	ErrCodeInvalid = errors.New("invalid or expired verification code")
	// ErrAttemptsExceeded is returned once MaxAttempts failures were recorded for the current code.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrResendCooldown is returned when a resend is attempted before ResendAvailableAt.
	ErrResendCooldown = errors.New("resend cooling down")
	// ErrResendFailed is returned when the collaborator could not issue a new code.
	ErrResendFailed = errors.New("resend failed")
	// ErrWeakPassword is returned when the new password fails the strength policy.
	ErrWeakPassword = errors.New("password does not meet security requirements")
	// ErrPasswordMismatch is returned when the confirmation differs from the new password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrResetFailed is returned for every commit failure, whatever the cause.
	ErrResetFailed = errors.New("password reset failed")
)

var (
	// errEmailMalformed never leaves the package; a malformed address gets the
	// same outcome as a well-formed one.
	errEmailMalformed    = errors.New("email malformed")
	errClientUnavailable = errors.New("otp client unavailable")
)

// User-facing messages carried in [Outcome.Message].
const (
	MsgResetRequested    = "If the email is registered, you’ll receive a verification code."
	MsgVerifyCode        = "Enter the verification code sent to your email."
	MsgCodeVerified      = "Code verified. Choose a new password."
	MsgCodeResent        = "A new verification code was sent."
	MsgInvalidOrExpired  = "Invalid or expired OTP."
	MsgIncompleteCode    = "Enter the full verification code."
	MsgTooManyAttempts   = "Too many attempts. Please request a new code."
	MsgResendCooldown    = "Please wait before requesting a new code."
	MsgResendUnavailable = "Unable to resend now. Try again later."
	MsgWeakPassword      = "Password does not meet security requirements."
	MsgPasswordMismatch  = "Passwords do not match."
	MsgResetFailed       = "Unable to reset password. Request a new code and try again."
	MsgResetComplete     = "Password reset successfully. Please log in again."
	MsgRequestAgain      = "Please request a password reset first."
	MsgBusy              = "Please wait for the current request to finish."
)

// messageFor returns the user-facing text for err.
func messageFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCodeIncomplete):
		return MsgIncompleteCode
	case errors.Is(err, ErrCodeInvalid):
		return MsgInvalidOrExpired
	case errors.Is(err, ErrAttemptsExceeded):
		return MsgTooManyAttempts
	case errors.Is(err, ErrResendCooldown):
		return MsgResendCooldown
	case errors.Is(err, ErrResendFailed):
		return MsgResendUnavailable
	case errors.Is(err, ErrWeakPassword):
		return MsgWeakPassword
	case errors.Is(err, ErrPasswordMismatch):
		return MsgPasswordMismatch
	case errors.Is(err, ErrResetFailed):
		return MsgResetFailed
	case errors.Is(err, ErrNoEmailContext):
		return MsgRequestAgain
	case errors.Is(err, ErrFlowBusy):
		return MsgBusy
	default:
		return ""
	}
}
