package backend

import (
	"errors"
	"time"

	"github.com/MrEthical07/goReset/internal"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/password"
)

// Config controls the reference reset service.
type Config struct {
	RedisPrefix string

	OTPDigits      int
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int

	// Request throttle: at most MaxRequestsPerWindow code requests per
	// address, and per IP when EnableIPThrottle is set, within RequestWindow.
	RequestWindow        time.Duration
	MaxRequestsPerWindow int
	EnableIPThrottle     bool

	// ResponseFloor is the minimum duration of a RequestReset call, so
	// registered and unknown addresses take the same time to answer.
	ResponseFloor time.Duration

	Argon2   password.Config
	Password password.PolicyConfig
	Grant    jwt.Config
}

// DefaultConfig matches the client defaults in the root package. Grant has
// no key material and must be filled in before use.
func DefaultConfig() Config {
	return Config{
		RedisPrefix:          "gro",
		OTPDigits:            6,
		CodeTTL:              300 * time.Second,
		ResendCooldown:       45 * time.Second,
		MaxAttempts:          5,
		RequestWindow:        time.Hour,
		MaxRequestsPerWindow: 10,
		EnableIPThrottle:     true,
		ResponseFloor:        250 * time.Millisecond,
		Argon2: password.Config{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Password: password.DefaultPolicyConfig(),
		Grant: jwt.Config{
			GrantTTL:      10 * time.Minute,
			SigningMethod: jwt.MethodEd25519,
			Issuer:        "goreset",
			Audience:      "password-reset",
			Leeway:        5 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if c.OTPDigits < internal.MinOTPDigits || c.OTPDigits > internal.MaxOTPDigits {
		return errors.New("backend: OTPDigits must be between 4 and 10")
	}
	if c.CodeTTL <= 0 {
		return errors.New("backend: CodeTTL must be > 0")
	}
	if c.ResendCooldown < 0 || c.ResendCooldown >= c.CodeTTL {
		return errors.New("backend: ResendCooldown must be >= 0 and shorter than CodeTTL")
	}
	if c.MaxAttempts <= 0 || c.MaxAttempts > 65535 {
		return errors.New("backend: MaxAttempts must be between 1 and 65535")
	}
	if c.MaxRequestsPerWindow < 0 {
		return errors.New("backend: MaxRequestsPerWindow must be >= 0")
	}
	if c.MaxRequestsPerWindow > 0 && c.RequestWindow <= 0 {
		return errors.New("backend: RequestWindow must be > 0 when throttling")
	}
	if c.ResponseFloor < 0 || c.ResponseFloor > 5*time.Second {
		return errors.New("backend: ResponseFloor must be between 0 and 5s")
	}
	return nil
}
