package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass represents a classification of render failures.
// Callers treat all classes alike; the class feeds logs and metrics.
type ErrorClass string

const (
	// ErrorClassLaunch represents a browser that could not be started.
	ErrorClassLaunch ErrorClass = "launch"

	// ErrorClassNavigation represents a failed navigation (DNS, TLS, connection).
	ErrorClassNavigation ErrorClass = "navigation"

	// ErrorClassTimeout represents a page that did not go network-idle in time.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCapture represents a failure while serializing the document.
	ErrorClassCapture ErrorClass = "capture"
)

// Error is returned by Render for every failure.
type Error struct {
	Class ErrorClass
	URL   string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render %s error for %s: %v", e.Class, e.URL, e.Err)
	}
	return fmt.Sprintf("render %s error for %s", e.Class, e.URL)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of a render error, or "" for other errors.
func ClassOf(err error) ErrorClass {
	var renderErr *Error
	if errors.As(err, &renderErr) {
		return renderErr.Class
	}
	return ""
}

// classifyStep maps a failed step to a class. A step that ran out of its own
// deadline is a timeout regardless of the step.
func classifyStep(stepCtx context.Context, err error, step ErrorClass) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	return step
}
