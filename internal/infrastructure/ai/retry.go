package ai

import (
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls retries of chat completion calls
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the retry settings used when none are configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// next returns the delay following d, capped at MaxDelay.
func (rc RetryConfig) next(d time.Duration) time.Duration {
	multiplier := rc.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d = time.Duration(float64(d) * multiplier)
	if rc.MaxDelay > 0 && d > rc.MaxDelay {
		d = rc.MaxDelay
	}
	return d
}

// retryAfter reads a Retry-After header given in seconds. Zero means absent.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
