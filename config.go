package goReset

import (
	"errors"
	"time"

	"github.com/MrEthical07/goReset/password"
)

// Config is the full configuration of an [Engine]. Start from [DefaultConfig]
// and override fields; [Builder.Build] validates the result.
type Config struct {
	Flow     FlowConfig
	Password PasswordPolicyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig holds the timing and attempt limits of every [Flow] the engine creates.
type FlowConfig struct {
	OTPLength      int
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

/*
====================================
PASSWORD POLICY CONFIG
====================================
*/

// PasswordPolicyConfig selects the strength rules applied before a new
// password is sent to the collaborator.
type PasswordPolicyConfig struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the recommended configuration: 6 digit codes valid for
// five minutes, a 45 second resend cooldown and five attempts per code.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultPolicyConfig()
	return Config{
		Flow: FlowConfig{
			OTPLength:      6,
			CodeTTL:        300 * time.Second,
			ResendCooldown: 45 * time.Second,
			MaxAttempts:    5,
		},
		Password: PasswordPolicyConfig{
			MinLength:     pw.MinLength,
			RequireUpper:  pw.RequireUpper,
			RequireLower:  pw.RequireLower,
			RequireDigit:  pw.RequireDigit,
			RequireSymbol: pw.RequireSymbol,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	return out
}

func (c PasswordPolicyConfig) policyConfig() password.PolicyConfig {
	return password.PolicyConfig{
		MinLength:     c.MinLength,
		RequireUpper:  c.RequireUpper,
		RequireLower:  c.RequireLower,
		RequireDigit:  c.RequireDigit,
		RequireSymbol: c.RequireSymbol,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration value that cannot produce a working flow.
func (c *Config) Validate() error {
	// Flow
	if c.Flow.OTPLength < 4 || c.Flow.OTPLength > 10 {
		return errors.New("Flow OTPLength must be between 4 and 10")
	}
	if c.Flow.CodeTTL <= 0 {
		return errors.New("Flow CodeTTL must be > 0")
	}
	if c.Flow.ResendCooldown < 0 {
		return errors.New("Flow ResendCooldown must be >= 0")
	}
	if c.Flow.ResendCooldown >= c.Flow.CodeTTL {
		return errors.New("Flow ResendCooldown must be shorter than CodeTTL")
	}
	if c.Flow.MaxAttempts <= 0 {
		return errors.New("Flow MaxAttempts must be > 0")
	}

	// Password
	if c.Password.MinLength < password.MinPasswordBytes {
		return errors.New("Password MinLength must be >= 8")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
