package tasktree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTaskRequest means a start event was paired with an incompatible terminator.
	ErrInvalidTaskRequest = errors.New("invalid parameters for task node")

	// ErrUnmatchedEndEvents means end events were left over after matching.
	ErrUnmatchedEndEvents = errors.New("unmatched end events")

	// ErrChildEndsAfterParent means a task's interval escapes its parent's.
	ErrChildEndsAfterParent = errors.New("child cannot end after parent")

	// ErrInvalidTiming means a task ends before it starts or has a non-finite self time.
	ErrInvalidTiming = errors.New("invalid task timing data")
)

// BuildError carries the event that made a build fail.
type BuildError struct {
	Err    error
	Name   string
	TS     float64
	Detail string
}

func (e *BuildError) Error() string {
	msg := "fatal trace logic error - " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" (event %q at ts=%v)", e.Name, e.TS)
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
