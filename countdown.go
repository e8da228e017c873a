package goReset

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goReset/internal/flows"
)

// Countdown returns the time left on the code and on the resend cooldown.
// Outside [StageVerifying] both are zero.
func (f *Flow) Countdown() Countdown {
	if !f.ready() {
		return Countdown{}
	}

	now := f.engine.now()
	f.mu.Lock()
	verifying := f.sess.Stage == flows.StageVerifying
	code, resend := flows.Remaining(&f.sess, now)
	f.mu.Unlock()

	return Countdown{
		CodeRemaining:   code,
		ResendRemaining: resend,
		CodeExpired:     verifying && code == 0,
		CanResend:       verifying && resend == 0,
	}
}

// Watch emits the current Countdown immediately and then every interval until
// ctx is done, when the channel is closed. A non-positive interval means one
// second. A slow reader misses ticks rather than delaying them.
func (f *Flow) Watch(ctx context.Context, interval time.Duration) <-chan Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Countdown, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case out <- f.Countdown():
			case <-ctx.Done():
				return
			default:
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// FormatCountdown renders d as mm:ss, rounding partial seconds up so a fresh
// five minute code shows 05:00 and the display reaches 00:00 only at expiry.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
