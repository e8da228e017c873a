package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goReset "github.com/MrEthical07/goReset"
)

var (
	ErrNoGrant          = errors.New("httpclient: no verified reset for this address")
	ErrResendCooldown   = errors.New("httpclient: resend cooldown active")
	ErrRateLimited      = errors.New("httpclient: rate limited")
	ErrRejected         = errors.New("httpclient: request rejected")
	ErrUnexpectedStatus = errors.New("httpclient: unexpected status")
)

const maxResponseBytes = 64 << 10

// Client talks to the reset endpoints served by backend/httpapi. It keeps the
// reset token returned by a successful verification and presents it on
// commit, so it can be handed to goReset as an OTPClient.
type Client struct {
	base *url.URL
	http *http.Client

	mu     sync.Mutex
	grants map[string]string
}

var _ goReset.OTPClient = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 10 * time.Second},
		grants: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) RequestReset(ctx context.Context, email string, force bool) error {
	c.dropGrant(email)

	body := map[string]any{"email": email}
	if force {
		body["force"] = true
	}
	return c.do(ctx, "/auth/forgot-password", "", body, nil)
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	var out struct {
		Verified   bool   `json:"verified"`
		ResetToken string `json:"reset_token"`
	}
	if err := c.do(ctx, "/auth/verify-otp", "", map[string]string{"email": email, "code": code}, &out); err != nil {
		return false, err
	}
	if !out.Verified {
		return false, nil
	}
	if out.ResetToken == "" {
		return false, fmt.Errorf("%w: verified without reset token", ErrRejected)
	}

	c.mu.Lock()
	c.grants[grantKey(email)] = out.ResetToken
	c.mu.Unlock()
	return true, nil
}

func (c *Client) CommitPassword(ctx context.Context, email, newPassword string) error {
	c.mu.Lock()
	grant, ok := c.grants[grantKey(email)]
	c.mu.Unlock()
	if !ok {
		return ErrNoGrant
	}

	body := map[string]string{"email": email, "password": newPassword, "confirm": newPassword}
	if err := c.do(ctx, "/auth/reset-password", grant, body, nil); err != nil {
		return err
	}
	c.dropGrant(email)
	return nil
}

func (c *Client) dropGrant(email string) {
	c.mu.Lock()
	delete(c.grants, grantKey(email))
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, path, bearer string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func statusError(status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	switch {
	case status == http.StatusTooManyRequests && body.Error == "resend_cooldown":
		return ErrResendCooldown
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 400 && status < 500:
		if body.Error == "" {
			body.Error = http.StatusText(status)
		}
		return fmt.Errorf("%w: %d %s", ErrRejected, status, body.Error)
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
}

func grantKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
