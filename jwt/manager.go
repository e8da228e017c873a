package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the grant signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// GrantPurpose is the only value accepted in the "pur" claim.
const GrantPurpose = "password_reset"

// MaxGrantTTL bounds Config.GrantTTL. A grant only has to outlive the time a
// user needs to type a new password.
const MaxGrantTTL = 30 * time.Minute

var (
	ErrGrantPurpose = errors.New("token is not a reset grant")
	ErrUnknownKey   = errors.New("grant signed with unknown key")
	ErrFutureIAT    = errors.New("grant iat too far in the future")
)

// Config defines how grants are signed and validated.
//
// VerifyKeys enables key rotation: when set, tokens must carry a kid present
// in the map.
type Config struct {
	GrantTTL      time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager issues and parses reset grants. It is safe for concurrent use.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	keyring   map[string]any
	parser    *jwt.Parser
	now       func() time.Time
}

// GrantClaims authorize one password commit for the record that was
// verified. Subject is the hashed identifier, never the email address.
type GrantClaims struct {
	RecordID string `json:"rid"`
	Purpose  string `json:"pur"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if err := normalize(&cfg); err != nil {
		return nil, err
	}

	m := &Manager{config: cfg, now: time.Now}
	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
		m.signKey, m.verifyKey = cfg.PrivateKey, cfg.PrivateKey
		err = m.loadKeyring(func(b []byte) (any, error) { return b, nil })
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		err = m.loadEd25519()
	default:
		err = fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

func normalize(cfg *Config) error {
	switch {
	case cfg.GrantTTL <= 0 || cfg.GrantTTL > MaxGrantTTL:
		return fmt.Errorf("grant TTL must be in (0, %s]", MaxGrantTTL)
	case cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute:
		return errors.New("leeway must be in [0, 2m]")
	case cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour:
		return errors.New("MaxFutureIAT must be in [0, 24h]")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return errors.New("KeyID is not present in VerifyKeys")
		}
	}
	return nil
}

func (m *Manager) loadEd25519() error {
	if len(m.config.PrivateKey) > 0 {
		priv, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return err
		}
		m.signKey = priv
	}
	if len(m.config.PublicKey) > 0 {
		pub, err := parseEdPublicKey(m.config.PublicKey)
		if err != nil {
			return err
		}
		m.verifyKey = pub
	}
	if m.verifyKey == nil && len(m.config.VerifyKeys) == 0 {
		return errors.New("ed25519 requires public key or verify key set")
	}
	return m.loadKeyring(func(b []byte) (any, error) { return parseEdPublicKey(b) })
}

func (m *Manager) loadKeyring(parse func([]byte) (any, error)) error {
	if m.config.SigningMethod == MethodHS256 && len(m.config.PrivateKey) < 32 {
		return errors.New("hs256 requires a key of at least 32 bytes")
	}
	if len(m.config.VerifyKeys) == 0 {
		return nil
	}
	m.keyring = make(map[string]any, len(m.config.VerifyKeys))
	for kid, raw := range m.config.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return errors.New("verify key map contains empty kid")
		}
		key, err := parse(raw)
		if err != nil {
			return fmt.Errorf("verify key %q: %w", kid, err)
		}
		m.keyring[kid] = key
	}
	return nil
}

// WithClock replaces the time source used to stamp and check grants. Call it
// before the manager is shared.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL returns the configured grant lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.GrantTTL
}

// CreateGrant signs a grant for subject bound to recordID.
func (m *Manager) CreateGrant(subject, recordID string) (string, error) {
	if subject == "" || recordID == "" {
		return "", errors.New("grant requires subject and record id")
	}
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	now := m.now()
	claims := GrantClaims{
		RecordID: recordID,
		Purpose:  GrantPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.GrantTTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.signKey)
}

// ParseGrant validates signature, registered claims and purpose.
func (m *Manager) ParseGrant(tokenStr string) (*GrantClaims, error) {
	claims := &GrantClaims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, m.keyFor)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Purpose != GrantPurpose || claims.RecordID == "" || claims.Subject == "" {
		return nil, ErrGrantPurpose
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, ErrFutureIAT
	}
	return claims, nil
}

func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if m.keyring != nil {
		if key, ok := m.keyring[kid]; ok {
			return key, nil
		}
		return nil, ErrUnknownKey
	}
	if m.config.KeyID != "" && kid != m.config.KeyID {
		return nil, ErrUnknownKey
	}
	return m.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
