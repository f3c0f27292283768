package retry

import "time"

// maxBackoff caps the delay so a long retry chain cannot stall a worker
// for minutes.
const maxBackoff = 30 * time.Second

// ExponentialBackoff returns the delay for a retry attempt. The delay
// doubles with each attempt (base * 2^attempt) and is clamped to a fixed
// ceiling. Negative attempts count as zero.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		base = time.Second
	}
	// 1<<attempt overflows quickly; clamp the shift before multiplying.
	if attempt > 10 {
		attempt = 10
	}
	d := base * (1 << attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
