package goReset

import (
	"context"
	"crypto/subtle"
	"sync"
)

// DemoCode is the code accepted by the client returned from [NewDemoClient].
const DemoCode = "123456"

// StaticClient is an in-memory [OTPClient] that accepts one fixed code for
// every address. It is meant for demos and local UI work, never production.
type StaticClient struct {
	code string

	mu        sync.Mutex
	requests  map[string]int
	passwords map[string]string
}

// NewDemoClient returns a StaticClient that accepts [DemoCode].
func NewDemoClient() *StaticClient {
	return NewStaticClient(DemoCode)
}

// NewStaticClient returns a StaticClient that accepts code.
func NewStaticClient(code string) *StaticClient {
	return &StaticClient{
		code:      code,
		requests:  make(map[string]int),
		passwords: make(map[string]string),
	}
}

func (c *StaticClient) RequestReset(ctx context.Context, email string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.requests[email]++
	c.mu.Unlock()
	return nil
}

func (c *StaticClient) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(c.code)) == 1, nil
}

func (c *StaticClient) CommitPassword(ctx context.Context, email, newPassword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.passwords[email] = newPassword
	c.mu.Unlock()
	return nil
}

// Requests reports how many codes were requested for email, resends included.
func (c *StaticClient) Requests(email string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[email]
}

// Password returns the last password committed for email.
func (c *StaticClient) Password(email string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pwd, ok := c.passwords[email]
	return pwd, ok
}
