package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryInvalidState is an operation on a task in the wrong lifecycle state
	ErrorCategoryInvalidState ErrorCategory = "INVALID_STATE"
	// ErrorCategorySubmissionRejected means the worker pool refused a work item
	ErrorCategorySubmissionRejected ErrorCategory = "SUBMISSION_REJECTED"
	// ErrorCategoryTaskFailure is a task body that returned an error or panicked
	ErrorCategoryTaskFailure ErrorCategory = "TASK_FAILURE"
	// ErrorCategoryObserverFailure is an observer that panicked during dispatch
	ErrorCategoryObserverFailure ErrorCategory = "OBSERVER_FAILURE"
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
)

// TaskError is a categorized error carrying the task it concerns and the underlying cause.
type TaskError struct {
	Category  ErrorCategory
	Operation string
	TaskName  string
	TaskID    string
	Message   string
	Context   map[string]interface{}
	Cause     error
}

// Error renders a single line; FormatForCLI renders the long form.
func (e *TaskError) Error() string {
	var sb strings.Builder

	sb.WriteString(string(e.Category))
	if e.Operation != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Operation)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	if e.TaskName != "" {
		sb.WriteString(fmt.Sprintf("task %q: ", e.TaskName))
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the cause for error chain compatibility
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError creates a new task error with the specified parameters
func NewTaskError(category ErrorCategory, operation, message string) *TaskError {
	return &TaskError{
		Category:  category,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// ForTask records the task identity on the error
func (e *TaskError) ForTask(id, name string) *TaskError {
	e.TaskID = id
	e.TaskName = name
	return e
}

// WithContext adds context information to the error
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// WithCause sets the wrapped error
func (e *TaskError) WithCause(err error) *TaskError {
	e.Cause = err
	return e
}

// NewInvalidStateError reports an operation attempted from the wrong state.
func NewInvalidStateError(operation, state string, cause error) *TaskError {
	return NewTaskError(ErrorCategoryInvalidState, operation,
		fmt.Sprintf("not allowed in state %s", state)).
		WithContext("state", state).
		WithCause(cause)
}

// NewSubmissionRejectedError reports a work item the pool refused.
func NewSubmissionRejectedError(cpu int, cause error) *TaskError {
	return NewTaskError(ErrorCategorySubmissionRejected, "start",
		"worker pool rejected the task").
		WithContext("cpu", cpu).
		WithCause(cause)
}

// NewConfigurationError reports an invalid configuration value.
func NewConfigurationError(key string, value interface{}, reason string) *TaskError {
	return NewTaskError(ErrorCategoryConfiguration, "config",
		fmt.Sprintf("invalid %s: %s", key, reason)).
		WithContext(key, value)
}

// CategoryOf returns the category of the first TaskError in err's chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var te *TaskError
	if stderrors.As(err, &te) {
		return te.Category, true
	}
	return "", false
}

// FormatForCLI formats an error for command-line display
func FormatForCLI(err error) string {
	var te *TaskError
	if !stderrors.As(err, &te) {
		return fmt.Sprintf("Error: %v\n", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s error", te.Category))
	if te.TaskName != "" {
		sb.WriteString(fmt.Sprintf(" in task %q", te.TaskName))
	}
	sb.WriteString(fmt.Sprintf("\n  %s\n", te.Message))

	if te.Operation != "" {
		sb.WriteString(fmt.Sprintf("Operation: %s\n", te.Operation))
	}

	if len(te.Context) > 0 {
		keys := make([]string, 0, len(te.Context))
		for k := range te.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Details:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, te.Context[k]))
		}
	}

	if te.Cause != nil {
		sb.WriteString(fmt.Sprintf("Cause: %v\n", te.Cause))
	}
	return sb.String()
}
