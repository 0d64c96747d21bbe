package errors

import (
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// PanicError is a recovered panic converted into an error.
// Its message is the panic value alone so callers see what the body raised.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// FromRecovered converts a conc recovery into a PanicError. A nil input yields nil.
func FromRecovered(r *panics.Recovered) error {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r.Value, Stack: r.Stack}
}

// Try runs fn and reports either its returned error or the panic it raised.
func Try(fn func() error) error {
	var err error
	if rec := FromRecovered(panics.Try(func() { err = fn() })); rec != nil {
		return rec
	}
	return err
}
