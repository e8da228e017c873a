package backend

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/internal"
	"github.com/MrEthical07/goReset/internal/limiters"
	"github.com/MrEthical07/goReset/internal/stores"
	"github.com/MrEthical07/goReset/internal/validate"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound   = errors.New("backend: user not found")
	ErrRateLimited    = errors.New("backend: too many reset requests")
	ErrResendCooldown = errors.New("backend: resend cooldown active")
	ErrInvalidCode    = errors.New("backend: invalid or expired code")
	ErrNotVerified    = errors.New("backend: no verified reset for this address")
	ErrInvalidGrant   = errors.New("backend: invalid reset grant")
	ErrWeakPassword   = errors.New("backend: password does not meet policy")
	ErrUnavailable    = errors.New("backend: reset backend unavailable")
)

// Service is the server side of the reset flow. It implements
// goReset.OTPClient so an Engine can drive it in-process, and exposes the
// grant-based variants used by the HTTP API.
type Service struct {
	cfg     Config
	users   UserProvider
	sender  CodeSender
	store   *stores.OTPResetStore
	limiter *limiters.OTPResetLimiter
	grants  *jwt.Manager
	policy  *password.Policy
	hasher  *password.Argon2
	logger  *slog.Logger
	now     func() time.Time
}

var _ goReset.OTPClient = (*Service)(nil)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used for record expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the Redis store and limiter, the password hasher and the
// grant manager. When cfg.Grant carries no key material an ephemeral Ed25519
// key is generated, so grants do not survive a restart.
func NewService(rdb redis.UniversalClient, users UserProvider, sender CodeSender, cfg Config, opts ...Option) (*Service, error) {
	if rdb == nil {
		return nil, errors.New("backend: redis client is required")
	}
	if users == nil || sender == nil {
		return nil, errors.New("backend: user provider and code sender are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := password.NewPolicy(cfg.Password)
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	grantCfg := cfg.Grant
	if len(grantCfg.PrivateKey) == 0 && len(grantCfg.PublicKey) == 0 && len(grantCfg.VerifyKeys) == 0 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		grantCfg.SigningMethod = jwt.MethodEd25519
		grantCfg.PrivateKey = priv
		grantCfg.PublicKey = pub
	}
	grants, err := jwt.NewManager(grantCfg)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		users:  users,
		sender: sender,
		grants: grants,
		policy: policy,
		hasher: hasher,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "reset_backend")

	s.grants.WithClock(s.now)
	s.store = stores.NewOTPResetStore(rdb, cfg.RedisPrefix).WithClock(s.now)
	if cfg.MaxRequestsPerWindow > 0 || cfg.ResendCooldown > 0 {
		s.limiter = limiters.NewOTPResetLimiter(rdb, limiters.OTPResetConfig{
			EnableIdentifierThrottle: cfg.MaxRequestsPerWindow > 0,
			EnableIPThrottle:         cfg.MaxRequestsPerWindow > 0 && cfg.EnableIPThrottle,
			Window:                   cfg.RequestWindow,
			MaxRequests:              cfg.MaxRequestsPerWindow,
			ResendCooldown:           cfg.ResendCooldown,
		})
	}

	return s, nil
}

// RequestReset issues a code for email. Unknown or malformed addresses get
// the same nil result as registered ones, after the same minimum delay.
// force marks a resend; only resends are subject to the resend cooldown, so
// the first resend after a request is always allowed.
func (s *Service) RequestReset(ctx context.Context, email string, force bool) error {
	start := time.Now()
	err := s.requestReset(ctx, email, force)
	s.pad(ctx, start)
	return err
}

func (s *Service) requestReset(ctx context.Context, email string, force bool) error {
	if !validate.LooksLikeEmail(email) {
		return nil
	}
	key := internal.EmailKey(email)

	if err := s.limiter.CheckRequest(ctx, key, goReset.ClientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrOTPRateLimited) {
			s.logger.WarnContext(ctx, "reset request throttled", "email_key", key)
			return ErrRateLimited
		}
		return s.unavailable(ctx, "request throttle", err)
	}

	if force {
		if err := s.limiter.AcquireResend(ctx, key); err != nil {
			if errors.Is(err, limiters.ErrOTPResendCooldown) {
				return ErrResendCooldown
			}
			return s.unavailable(ctx, "resend cooldown", err)
		}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.DebugContext(ctx, "reset requested for unknown address", "email_key", key)
		return nil
	}
	if err != nil {
		return s.unavailable(ctx, "user lookup", err)
	}

	code, err := internal.NewOTP(s.cfg.OTPDigits)
	if err != nil {
		return s.unavailable(ctx, "code generation", err)
	}

	expiresAt := s.now().Add(s.cfg.CodeTTL)
	record := &stores.OTPResetRecord{
		RecordID:  uuid.NewString(),
		UserID:    user.ID,
		CodeHash:  internal.HashOTP(key, code),
		ExpiresAt: expiresAt.UnixMilli(),
	}
	if err := s.store.Save(ctx, key, record, s.cfg.CodeTTL); err != nil {
		return s.unavailable(ctx, "save record", err)
	}

	if err := s.sender.SendResetCode(ctx, user.Email, code, expiresAt); err != nil {
		_ = s.store.Delete(ctx, key)
		return s.unavailable(ctx, "send code", err)
	}

	s.logger.InfoContext(ctx, "reset code issued",
		"email_key", key,
		"record_id", record.RecordID,
		"resend", force,
	)
	return nil
}

// VerifyCode reports whether code is the live code for email. Wrong, expired
// and exhausted codes all report false with a nil error.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	_, err := s.verify(ctx, email, code)
	if errors.Is(err, ErrInvalidCode) {
		return false, nil
	}
	return err == nil, err
}

// VerifyForGrant verifies code and returns a signed grant authorizing one
// password commit for the verified record.
func (s *Service) VerifyForGrant(ctx context.Context, email, code string) (string, error) {
	record, err := s.verify(ctx, email, code)
	if err != nil {
		return "", err
	}

	grant, err := s.grants.CreateGrant(internal.EmailKey(email), record.RecordID)
	if err != nil {
		return "", s.unavailable(ctx, "sign grant", err)
	}
	return grant, nil
}

func (s *Service) verify(ctx context.Context, email, code string) (*stores.OTPResetRecord, error) {
	if !isDigits(code, s.cfg.OTPDigits) {
		return nil, ErrInvalidCode
	}
	key := internal.EmailKey(email)

	record, err := s.store.Verify(ctx, key, internal.HashOTP(key, code), s.cfg.MaxAttempts)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "reset code verified", "email_key", key, "record_id", record.RecordID)
		return record, nil
	case errors.Is(err, stores.ErrOTPAttemptsExceeded):
		s.logger.WarnContext(ctx, "reset code attempts exhausted", "email_key", key)
		return nil, ErrInvalidCode
	case errors.Is(err, stores.ErrOTPMismatch), errors.Is(err, stores.ErrOTPNotFound):
		return nil, ErrInvalidCode
	default:
		return nil, s.unavailable(ctx, "verify code", err)
	}
}

// CommitPassword sets the new password for an address whose code was
// verified. The verified record is consumed.
func (s *Service) CommitPassword(ctx context.Context, email, newPassword string) error {
	return s.commit(ctx, internal.EmailKey(email), "", newPassword)
}

// CommitWithGrant is CommitPassword for callers that hold a grant from
// VerifyForGrant. The grant must belong to email and to the live record.
func (s *Service) CommitWithGrant(ctx context.Context, email, grant, newPassword string) error {
	claims, err := s.grants.ParseGrant(grant)
	if err != nil {
		s.logger.WarnContext(ctx, "reset grant rejected", "error", err)
		return ErrInvalidGrant
	}

	key := internal.EmailKey(email)
	if claims.Subject != key {
		return ErrInvalidGrant
	}
	return s.commit(ctx, key, claims.RecordID, newPassword)
}

func (s *Service) commit(ctx context.Context, key, recordID, newPassword string) error {
	if err := s.policy.Check(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrWeakPassword, err)
		}
		return s.unavailable(ctx, "hash password", err)
	}

	record, err := s.store.Consume(ctx, key, recordID)
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrOTPMismatch):
		return ErrInvalidGrant
	case errors.Is(err, stores.ErrOTPNotFound), errors.Is(err, stores.ErrOTPNotVerified):
		return ErrNotVerified
	default:
		return s.unavailable(ctx, "consume record", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		return s.unavailable(ctx, "update password", err)
	}

	s.logger.InfoContext(ctx, "password reset committed", "email_key", key, "record_id", record.RecordID)
	return nil
}

// ResendRemaining reports how long until a resend for email is accepted.
func (s *Service) ResendRemaining(ctx context.Context, email string) (time.Duration, error) {
	return s.limiter.ResendRemaining(ctx, internal.EmailKey(email))
}

// Grants returns the manager that signs and parses reset grants.
func (s *Service) Grants() *jwt.Manager {
	return s.grants
}

// PasswordPolicy exposes the policy commits are checked against.
func (s *Service) PasswordPolicy() *password.Policy {
	return s.policy
}

func (s *Service) unavailable(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "reset backend failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *Service) pad(ctx context.Context, start time.Time) {
	wait := s.cfg.ResponseFloor - time.Since(start)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func isDigits(code string, n int) bool {
	if len(code) != n {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
