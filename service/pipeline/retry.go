package pipeline

import (
	"math"
	"time"
)

// Retry configures retries of transient command failures. MaxRetries of zero disables retries.
type Retry struct {
	MaxRetries int     `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	DelayMs    int     `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MaxDelayMs int     `json:"maxDelayMs,omitempty" yaml:"maxDelayMs,omitempty"`
}

// ShouldRetry returns (retry?, delay) after the given failed attempt (1-based).
func (r *Retry) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if r == nil || r.MaxRetries <= 0 || !IsTransient(err) {
		return false, 0
	}
	if attempt > r.MaxRetries {
		return false, 0
	}
	delay := float64(r.DelayMs) * float64(time.Millisecond)
	if r.Multiplier > 1 {
		delay *= math.Pow(r.Multiplier, float64(attempt-1))
	}
	if r.MaxDelayMs > 0 && delay > float64(r.MaxDelayMs)*float64(time.Millisecond) {
		delay = float64(r.MaxDelayMs) * float64(time.Millisecond)
	}
	return true, time.Duration(delay)
}
