package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpRecordVersionV1 = 1

	otpFlagVerified = 1 << 0
)

var (
	ErrOTPNotFound         = errors.New("otp record not found")
	ErrOTPMismatch         = errors.New("otp mismatch")
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrOTPNotVerified      = errors.New("otp record not verified")
	ErrOTPRedisUnavailable = errors.New("otp redis unavailable")
)

// OTPResetRecord is the server-side state of one issued reset code.
// ExpiresAt is in Unix milliseconds.
type OTPResetRecord struct {
	RecordID  string
	UserID    string
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
	Verified  bool
}

// OTPResetStore keeps at most one live record per identifier.
type OTPResetStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewOTPResetStore(redisClient redis.UniversalClient, prefix string) *OTPResetStore {
	if prefix == "" {
		prefix = "gro"
	}
	return &OTPResetStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock replaces the expiry clock. Redis TTLs still run on server time.
func (s *OTPResetStore) WithClock(now func() time.Time) *OTPResetStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *OTPResetStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

// Save replaces any existing record for identifier, which also resets its
// attempt counter.
func (s *OTPResetStore) Save(ctx context.Context, identifier string, record *OTPResetRecord, ttl time.Duration) error {
	encoded, err := encodeOTPResetRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(identifier), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

// Verify checks providedHash against the stored code. A mismatch consumes one
// attempt and the record is deleted once maxAttempts is reached. A match marks
// the record verified; verifying an already verified record fails.
func (s *OTPResetStore) Verify(
	ctx context.Context,
	identifier string,
	providedHash [32]byte,
	maxAttempts int,
) (*OTPResetRecord, error) {
	const maxRetries = 4
	key := s.key(identifier)

	for i := 0; i < maxRetries; i++ {
		var matched *OTPResetRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			record, ttl, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}
			if record.Verified {
				return ErrOTPMismatch
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					if err := deleteKey(ctx, tx, key); err != nil {
						return err
					}
					return ErrOTPAttemptsExceeded
				}
				if err := writeRecord(ctx, tx, key, record, ttl); err != nil {
					return err
				}
				return ErrOTPMismatch
			}

			record.Verified = true
			if err := writeRecord(ctx, tx, key, record, ttl); err != nil {
				return err
			}
			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, classifyOTPError(err)
		}
		return matched, nil
	}

	return nil, ErrOTPNotFound
}

// Consume deletes a verified record and returns it. When recordID is not
// empty it must match the stored record. Records that fail either check are
// left in place.
func (s *OTPResetStore) Consume(ctx context.Context, identifier, recordID string) (*OTPResetRecord, error) {
	const maxRetries = 4
	key := s.key(identifier)

	for i := 0; i < maxRetries; i++ {
		var consumed *OTPResetRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			record, _, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}
			if recordID != "" && subtle.ConstantTimeCompare([]byte(record.RecordID), []byte(recordID)) != 1 {
				return ErrOTPMismatch
			}
			if !record.Verified {
				return ErrOTPNotVerified
			}
			if err := deleteKey(ctx, tx, key); err != nil {
				return err
			}
			consumed = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, classifyOTPError(err)
		}
		return consumed, nil
	}

	return nil, ErrOTPNotFound
}

func (s *OTPResetStore) Get(ctx context.Context, identifier string) (*OTPResetRecord, error) {
	data, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}

	record, err := decodeOTPResetRecord(data)
	if err != nil {
		return nil, err
	}
	if s.now().UnixMilli() >= record.ExpiresAt {
		return nil, ErrOTPNotFound
	}
	return record, nil
}

func (s *OTPResetStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

// load returns the live record under key and its remaining lifetime. Expired
// records are deleted.
func (s *OTPResetStore) load(ctx context.Context, tx *redis.Tx, key string) (*OTPResetRecord, time.Duration, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrOTPNotFound
		}
		return nil, 0, err
	}

	record, err := decodeOTPResetRecord(data)
	if err != nil {
		return nil, 0, err
	}

	ttl := time.UnixMilli(record.ExpiresAt).Sub(s.now())
	if ttl <= 0 {
		if err := deleteKey(ctx, tx, key); err != nil {
			return nil, 0, err
		}
		return nil, 0, ErrOTPNotFound
	}
	return record, ttl, nil
}

func writeRecord(ctx context.Context, tx *redis.Tx, key string, record *OTPResetRecord, ttl time.Duration) error {
	updated, err := encodeOTPResetRecord(record)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, updated, ttl)
		return nil
	})
	return err
}

func deleteKey(ctx context.Context, tx *redis.Tx, key string) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

func classifyOTPError(err error) error {
	switch {
	case errors.Is(err, ErrOTPNotFound),
		errors.Is(err, ErrOTPMismatch),
		errors.Is(err, ErrOTPAttemptsExceeded),
		errors.Is(err, ErrOTPNotVerified):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
}

func encodeOTPResetRecord(record *OTPResetRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)

	var flags byte
	if record.Verified {
		flags |= otpFlagVerified
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := writeString(&buf, record.RecordID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, record.UserID); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeOTPResetRecord(data []byte) (*OTPResetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpRecordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &OTPResetRecord{
		Verified: flags&otpFlagVerified != 0,
	}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if record.RecordID, err = readString(reader); err != nil {
		return nil, err
	}
	if record.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("otp record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
