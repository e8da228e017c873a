package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOTPRateLimited      = errors.New("otp request rate limited")
	ErrOTPResendCooldown   = errors.New("otp resend cooldown active")
	ErrOTPRedisUnavailable = errors.New("otp redis unavailable")
)

type OTPResetConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxRequests              int
	ResendCooldown           time.Duration
}

// OTPResetLimiter throttles code requests per identifier and per IP and
// enforces the gap between consecutive codes for one identifier.
type OTPResetLimiter struct {
	redis  redis.UniversalClient
	config OTPResetConfig
}

func NewOTPResetLimiter(redisClient redis.UniversalClient, cfg OTPResetConfig) *OTPResetLimiter {
	return &OTPResetLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *OTPResetLimiter) CheckRequest(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, otpRequestIdentifierKey(identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, otpRequestIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// AcquireResend claims a resend slot and starts the cooldown. It fails with
// ErrOTPResendCooldown while the previous resend's cooldown is running. A
// first code does not start the cooldown.
func (l *OTPResetLimiter) AcquireResend(ctx context.Context, identifier string) error {
	if l == nil || l.config.ResendCooldown <= 0 {
		return nil
	}
	ok, err := l.redis.SetNX(ctx, otpResendKey(identifier), 1, l.config.ResendCooldown).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	if !ok {
		return ErrOTPResendCooldown
	}
	return nil
}

// ResendRemaining reports how long until AcquireResend can succeed.
func (l *OTPResetLimiter) ResendRemaining(ctx context.Context, identifier string) (time.Duration, error) {
	if l == nil {
		return 0, nil
	}
	ttl, err := l.redis.PTTL(ctx, otpResendKey(identifier)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *OTPResetLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrOTPRateLimited
	}
	return nil
}

func otpRequestIdentifierKey(identifier string) string {
	return "grri:" + identifier
}

func otpRequestIPKey(ip string) string {
	return "grrip:" + ip
}

func otpResendKey(identifier string) string {
	return "grrs:" + identifier
}
