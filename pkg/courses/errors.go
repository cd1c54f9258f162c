package courses

import (
	"errors"
	"fmt"
)

// Query errors. Their text is safe to show to users.
var (
	ErrInvalidDisplayMode      = errors.New("invalid display format")
	ErrCacheEmpty              = errors.New("course data was not retrieved, try again later")
	ErrUnknownSemester         = errors.New("specified semester does not exist")
	ErrSemesterDataUnavailable = errors.New("course data for this semester was not retrieved, try again later")
	ErrCourseNotFound          = errors.New("specified course was not found")

	// ErrCycleInProgress is returned by Refresher.Cycle when another cycle holds the lock.
	ErrCycleInProgress = errors.New("refresh cycle already in progress")
)

// TransportError is a network failure, timeout, or non-200 response.
type TransportError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed %s: http %d", e.URL, e.Status)
	}
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedPayloadError means the body could not be unwrapped or lacks the expected shape.
type MalformedPayloadError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	msg := "malformed payload"
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
