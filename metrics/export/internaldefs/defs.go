package internaldefs

import (
	goReset "github.com/MrEthical07/goReset"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   goReset.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for every exporter.
type HistogramDef struct {
	ID   goReset.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goReset.MetricResetRequested, Name: "goreset_reset_requested_total", Help: "Reset codes requested."},
	{ID: goReset.MetricResetRequestMalformed, Name: "goreset_reset_request_malformed_total", Help: "Reset requests with a malformed email address."},
	{ID: goReset.MetricVerificationStarted, Name: "goreset_verification_started_total", Help: "Flows that entered code verification."},
	{ID: goReset.MetricCodeAccepted, Name: "goreset_code_accepted_total", Help: "Codes accepted by the backend."},
	{ID: goReset.MetricCodeRejected, Name: "goreset_code_rejected_total", Help: "Codes rejected by the backend or lost to transport errors."},
	{ID: goReset.MetricCodeExpired, Name: "goreset_code_expired_total", Help: "Submissions after the code deadline."},
	{ID: goReset.MetricCodeIncomplete, Name: "goreset_code_incomplete_total", Help: "Submissions with too few digits."},
	{ID: goReset.MetricAttemptsExceeded, Name: "goreset_attempts_exceeded_total", Help: "Submissions refused because the attempt budget was used up."},
	{ID: goReset.MetricResendSuccess, Name: "goreset_resend_success_total", Help: "Codes re-sent."},
	{ID: goReset.MetricResendCooldown, Name: "goreset_resend_cooldown_total", Help: "Resends refused during the cooldown."},
	{ID: goReset.MetricResendFailed, Name: "goreset_resend_failed_total", Help: "Resends that failed in the backend."},
	{ID: goReset.MetricPasswordRejected, Name: "goreset_password_rejected_total", Help: "New passwords refused as weak or mismatched."},
	{ID: goReset.MetricResetCommitted, Name: "goreset_reset_committed_total", Help: "Passwords reset successfully."},
	{ID: goReset.MetricResetFailed, Name: "goreset_reset_failed_total", Help: "Password commits that failed in the backend."},
	{ID: goReset.MetricFlowBusy, Name: "goreset_flow_busy_total", Help: "Operations refused while a backend call was in flight."},
	{ID: goReset.MetricFlowAbandoned, Name: "goreset_flow_abandoned_total", Help: "Flows abandoned by the user."},
	{ID: goReset.MetricStaleResponseDiscarded, Name: "goreset_stale_response_discarded_total", Help: "Backend responses dropped because the flow moved on."},
}

var HistogramDefs = []HistogramDef{
	{ID: goReset.MetricVerifyLatency, Name: "goreset_verify_latency_seconds", Help: "Backend code verification latency."},
}

// HistogramBounds are the upper bounds of the fixed latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for use in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into "less or equal" counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
