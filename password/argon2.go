package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMaxPasswordBytes caps the plaintext size fed into argon2 when
	// Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned by Hash for input shorter than MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by Hash and Verify for input above the configured cap.
	ErrPasswordTooLong = errors.New("password too long")
)

// Config holds argon2id cost parameters.
type Config struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// ErrMalformedHash wraps every failure to decode a stored hash.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Argon2 hashes and verifies the new password committed at the end of a reset.
type Argon2 struct {
	config Config
}

// phcHash is one decoded $argon2id$ string.
type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
}

func (h phcHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, h.memory, h.time, h.parallelism,
		phcEncoding.EncodeToString(h.salt), phcEncoding.EncodeToString(h.key))
}

// PHC strings carry unpadded standard base64.
var phcEncoding = base64.RawStdEncoding

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns the PHC-encoded argon2id hash of password.
//
// The raw bytes are hashed as provided; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	switch {
	case len(password) < MinPasswordBytes:
		return "", ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	h := phcHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify reports whether password matches encodedHash in constant time.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return a.config.Memory > h.memory ||
		a.config.Time > h.time ||
		a.config.Parallelism > h.parallelism ||
		a.config.KeyLength != uint32(len(h.key)), nil
}

func decodePHC(encoded string) (phcHash, error) {
	var h phcHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return h, fmt.Errorf("%w: expected 5 fields", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return h, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: version %q", ErrMalformedHash, parts[2])
	}

	if err := h.decodeParams(parts[3]); err != nil {
		return h, err
	}

	var err error
	if h.salt, err = phcEncoding.DecodeString(parts[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return h, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.key, err = phcEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

// decodeParams accepts exactly "m=<kb>,t=<passes>,p=<lanes>" in that order.
func (h *phcHash) decodeParams(field string) error {
	var memory, time, lanes uint64
	parts := strings.Split(field, ",")
	if len(parts) != 3 {
		return fmt.Errorf("%w: params %q", ErrMalformedHash, field)
	}
	for i, param := range []struct {
		key string
		dst *uint64
		max int
	}{{"m", &memory, 32}, {"t", &time, 32}, {"p", &lanes, 8}} {
		value, ok := strings.CutPrefix(parts[i], param.key+"=")
		if !ok {
			return fmt.Errorf("%w: params %q", ErrMalformedHash, field)
		}
		v, err := strconv.ParseUint(value, 10, param.max)
		if err != nil {
			return fmt.Errorf("%w: param %s", ErrMalformedHash, param.key)
		}
		*param.dst = v
	}

	if memory < uint64(minMemoryKB) || time < uint64(minTimeCost) || lanes < uint64(minParallelism) {
		return fmt.Errorf("%w: params below minimum", ErrMalformedHash)
	}
	h.memory, h.time, h.parallelism = uint32(memory), uint32(time), uint8(lanes)
	return nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return errors.New("password key length must be >= 16")
	case cfg.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	case cfg.MaxPasswordBytes > 0 && cfg.MaxPasswordBytes < MinPasswordBytes:
		return fmt.Errorf("password max bytes must be >= %d", MinPasswordBytes)
	}

	return nil
}
