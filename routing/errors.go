package routing

import (
	"errors"
	"fmt"

	"citychat/providers"
)

var (
	// ErrUpstreamBusy means every model failed and the last one was rate limited.
	ErrUpstreamBusy = errors.New("all models are busy")

	// ErrUnavailable means every model failed for some other reason.
	ErrUnavailable = errors.New("all models failed")
)

// ExhaustedError is returned when every model in the roster has been tried once.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", e.class(), e.Attempts, e.Last)
}

// Unwrap exposes both the classification sentinel and the last model failure.
func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{e.class()}
	}
	return []error{e.class(), e.Last}
}

// Busy reports whether the final failure was an upstream capacity condition.
func (e *ExhaustedError) Busy() bool {
	return providers.IsRateLimited(e.Last)
}

func (e *ExhaustedError) class() error {
	if e.Busy() {
		return ErrUpstreamBusy
	}
	return ErrUnavailable
}
