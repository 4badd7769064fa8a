package providers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks failures raised while contacting upstream (DNS, connect, reset, timeout).
	ErrTransport = errors.New("upstream transport failure")

	// ErrMalformedResponse marks a 2xx response whose body could not be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrEmptyCompletion marks a 2xx response without usable completion text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrRateLimited marks an upstream 429.
	ErrRateLimited = errors.New("upstream rate limited")
)

// UpstreamError describes why a single model attempt failed.
type UpstreamError struct {
	Model   string
	Status  int // 0 for transport faults
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("Model %s failed: %v", e.Model, e.Err)
	case e.Message != "":
		return fmt.Sprintf("Model %s failed: %d - %s", e.Model, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("Model %s failed: %d - %v", e.Model, e.Status, e.Err)
	default:
		return fmt.Sprintf("Model %s failed: %d - %s", e.Model, e.Status, http.StatusText(e.Status))
	}
}

func (e *UpstreamError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// RateLimited reports whether upstream refused the attempt for capacity reasons.
func (e *UpstreamError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// IsRateLimited reports whether err, or anything it wraps, is an upstream 429.
func IsRateLimited(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.RateLimited()
	}
	return errors.Is(err, ErrRateLimited)
}
