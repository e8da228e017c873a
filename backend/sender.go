package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goReset/internal"
)

// CodeSender delivers a freshly issued code to its owner, typically by email.
type CodeSender interface {
	SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// CodeSenderFunc adapts a function to CodeSender.
type CodeSenderFunc func(ctx context.Context, email, code string, expiresAt time.Time) error

func (f CodeSenderFunc) SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	return f(ctx, email, code, expiresAt)
}

// Outbox keeps the last code sent to each address. It stands in for a mail
// provider in demos and tests.
type Outbox struct {
	mu    sync.Mutex
	codes map[string]string
	sent  map[string]int
}

func NewOutbox() *Outbox {
	return &Outbox{
		codes: make(map[string]string),
		sent:  make(map[string]int),
	}
}

func (o *Outbox) SendResetCode(_ context.Context, email, code string, _ time.Time) error {
	key := internal.NormalizeEmail(email)
	o.mu.Lock()
	o.codes[key] = code
	o.sent[key]++
	o.mu.Unlock()
	return nil
}

// LastCode returns the most recent code sent to email.
func (o *Outbox) LastCode(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	code, ok := o.codes[internal.NormalizeEmail(email)]
	return code, ok
}

// Sent reports how many codes were sent to email.
func (o *Outbox) Sent(email string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[internal.NormalizeEmail(email)]
}

// LogSender writes codes to a logger. Development only: the code is in the
// log line.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "reset_code_sender")}
}

func (s *LogSender) SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.logger.InfoContext(ctx, "reset code issued",
		"email", email,
		"code", code,
		"expires_at", expiresAt.Format(time.RFC3339),
	)
	return nil
}
