package goReset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	auditEventResetRequested      = "reset_requested"
	auditEventVerificationStarted = "verification_started"
	auditEventCodeAccepted        = "code_accepted"
	auditEventCodeRejected        = "code_rejected"
	auditEventAttemptsExceeded    = "attempts_exceeded"
	auditEventCodeResent          = "code_resent"
	auditEventResendFailed        = "resend_failed"
	auditEventPasswordRejected    = "password_rejected"
	auditEventResetCommitted      = "reset_committed"
	auditEventResetFailed         = "reset_failed"
	auditEventFlowAbandoned       = "flow_abandoned"
	auditEventStaleResponse       = "stale_response_discarded"
	auditEventContextLost         = "email_context_lost"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
// Sinks compare against the AuditErr constants rather than error text.
type AuditErrorCode string

const (
	AuditErrEmailMalformed   AuditErrorCode = "email_malformed"
	AuditErrCodeIncomplete   AuditErrorCode = "code_incomplete"
	AuditErrCodeInvalid      AuditErrorCode = "code_invalid"
	AuditErrAttemptsExceeded AuditErrorCode = "attempts_exceeded"
	AuditErrCooldown         AuditErrorCode = "cooldown"
	AuditErrUnavailable      AuditErrorCode = "backend_unavailable"
	AuditErrWeakPassword     AuditErrorCode = "weak_password"
	AuditErrMismatch         AuditErrorCode = "password_mismatch"
	AuditErrNoEmailContext   AuditErrorCode = "no_email_context"
	AuditErrStale            AuditErrorCode = "stale"
	AuditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	flowID string,
	stage Stage,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		FlowID:    flowID,
		Stage:     stage.String(),
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errEmailMalformed):
		return AuditErrEmailMalformed
	case errors.Is(err, ErrCodeIncomplete):
		return AuditErrCodeIncomplete
	case errors.Is(err, ErrCodeInvalid):
		return AuditErrCodeInvalid
	case errors.Is(err, ErrAttemptsExceeded):
		return AuditErrAttemptsExceeded
	case errors.Is(err, ErrResendCooldown):
		return AuditErrCooldown
	case errors.Is(err, ErrResendFailed),
		errors.Is(err, ErrResetFailed),
		errors.Is(err, errClientUnavailable):
		return AuditErrUnavailable
	case errors.Is(err, ErrWeakPassword):
		return AuditErrWeakPassword
	case errors.Is(err, ErrPasswordMismatch):
		return AuditErrMismatch
	case errors.Is(err, ErrNoEmailContext):
		return AuditErrNoEmailContext
	case errors.Is(err, ErrFlowAbandoned):
		return AuditErrStale
	default:
		return AuditErrInternal
	}
}

// emailFingerprint lets audit consumers correlate events for one address
// without storing it.
func emailFingerprint(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:6])
}
