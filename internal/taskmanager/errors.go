package taskmanager

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation does not fit the task's lifecycle state.
	ErrInvalidState = errors.New("invalid task state")
	// ErrAlreadyStarted is returned by Start and StartInline for a task that is running or finished.
	ErrAlreadyStarted = fmt.Errorf("%w: task already started", ErrInvalidState)
	// ErrPoolExhausted is returned by Start when the pool refuses the work item.
	ErrPoolExhausted = errors.New("worker pool exhausted")
	// ErrCancelled may be returned by a body that stops because it was cancelled.
	// With the cancel flag set, it yields a Cancelled event rather than Failed.
	ErrCancelled = errors.New("task cancelled")
)
