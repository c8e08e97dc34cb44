package doc

import (
	"errors"
	"fmt"
)

// Structural mutation failures. Every mutation validates its request first
// and returns one of these without touching the document, so a failed call
// never leaves partial state behind.

var (
	// ErrIndexOutOfRange marks a mutation addressing a block, run, row or
	// column that does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrKindMismatch marks a mutation applied to the wrong block kind.
	ErrKindMismatch = errors.New("block kind mismatch")
	// ErrNotRectangular marks a table mutation that would leave rows of
	// unequal length.
	ErrNotRectangular = errors.New("table would not be rectangular")
	// ErrBlockAttached marks an insert of a block that already belongs to
	// a container.
	ErrBlockAttached = errors.New("block already attached")
	// ErrEmptyRun marks an attempt to create a text run with no content.
	ErrEmptyRun = errors.New("empty text run")
)

// StructuralError wraps a rejected mutation with the operation name.
type StructuralError struct {
	Op  string
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(op string, err error) error {
	return &StructuralError{Op: op, Err: err}
}
