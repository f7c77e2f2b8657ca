package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches any UnavailableError.
	ErrUnavailable = errors.New("stream unavailable")
	// ErrInterrupted matches any InterruptedError.
	ErrInterrupted = errors.New("stream interrupted")
)

// UnavailableError means the upstream never produced a readable stream:
// a non-2xx status, a missing body or a transport failure before the body.
type UnavailableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stream unavailable: status %d: %s", e.StatusCode, e.Message)
	}
	return "stream unavailable: " + e.Message
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Err }

// InterruptedError means reading failed after the stream started. Partial
// holds the text assembled before the failure.
type InterruptedError struct {
	Partial string
	Err     error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *InterruptedError) Is(target error) bool { return target == ErrInterrupted }

func (e *InterruptedError) Unwrap() error { return e.Err }
