package worker

import "time"

// Backoff spaces out retries of a failed store call. Delays double per
// attempt starting at Base and are clamped to Cap.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// Delay returns the wait before retrying after the given 1-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Cap > 0 && d >= b.Cap {
			return b.Cap
		}
	}
	return d
}
