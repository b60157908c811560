package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL is returned when an input URL cannot be parsed or has no usable host
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidProtocol is returned for schemes other than http and https
	ErrInvalidProtocol = fmt.Errorf("%w: unsupported protocol", ErrInvalidURL)

	// ErrBlockedDomain is returned for social-media, loopback and private hosts
	ErrBlockedDomain = errors.New("blocked domain")

	// ErrExtractionFailed is returned when every extraction strategy has been exhausted
	ErrExtractionFailed = errors.New("product extraction failed")

	// ErrStrategySkipped is returned by a strategy that does not apply to the current target
	ErrStrategySkipped = errors.New("strategy not applicable")

	// ErrInvalidCandidate is returned when a strategy produced a record without name or image
	ErrInvalidCandidate = errors.New("candidate missing name or image")

	// ErrAIResponseInvalid is returned when the AI reply has no parsable JSON or misses required fields
	ErrAIResponseInvalid = errors.New("AI response invalid")

	// ErrAIDisabled is returned when no AI provider is configured
	ErrAIDisabled = errors.New("AI provider not configured")

	// ErrProviderUnavailable is returned on network failures, timeouts and 5xx from outbound providers
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAIAdjudicationUnavailable marks a duplicate or similarity result degraded to empty
	ErrAIAdjudicationUnavailable = errors.New("AI adjudication unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// ProviderError describes a failed call to an outbound provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExtractionFailedError carries the per-strategy attempt log of a failed chain.
type ExtractionFailedError struct {
	URL      string
	Attempts []ExtractionAttempt
}

func (e *ExtractionFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Error))
	}
	return fmt.Sprintf("%v for %s [%s]", ErrExtractionFailed, e.URL, strings.Join(parts, "; "))
}

func (e *ExtractionFailedError) Unwrap() error {
	return ErrExtractionFailed
}
