package reactor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAnObject is returned when New is handed a value that isn't a
// struct pointer, a non-nil string-keyed map, or a slice pointer. A
// pointer to an array is rejected with it as well.
var ErrNotAnObject = errors.New("reactor: not an object")

// ErrNotCallable is returned when NewObserver is handed a nil body.
var ErrNotCallable = errors.New("reactor: not callable")

// ErrNotWritable is returned when Set targets an exported struct field
// that reflect reports as not settable. Unexported fields are treated
// as absent and yield ErrUnknownKey instead.
var ErrNotWritable = errors.New("reactor: property not writable")

// ErrFixedShape is returned when Delete targets a struct field; Go
// struct shapes are fixed at compile time, unlike a JS object's.
var ErrFixedShape = errors.New("reactor: struct fields cannot be deleted")

// ErrUnknownKey is returned when Get/Set targets a struct field that
// does not exist on the source type or is unexported, or a slice index
// that is not a number in range.
var ErrUnknownKey = errors.New("reactor: unknown field")

// CompositeError aggregates the errors produced by more than one
// observer failing during a single drain cycle. Composite errors
// nested inside causes are flattened one level so a chain of writes
// across several observers still surfaces one flat list.
type CompositeError struct {
	Errors []error
}

func newCompositeError(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	flat := make([]error, 0, len(errs))
	for _, err := range errs {
		var ce *CompositeError
		if errors.As(err, &ce) {
			flat = append(flat, ce.Errors...)
		} else {
			flat = append(flat, err)
		}
	}
	return &CompositeError{Errors: flat}
}

func (e *CompositeError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("reactor: %d observer(s) failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying errors for errors.Is/errors.As, per
// the Go 1.20+ multi-error convention.
func (e *CompositeError) Unwrap() []error {
	return e.Errors
}
