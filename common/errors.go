package common

import "fmt"

// EncodingError is returned by import adapters when the input bytes cannot
// be interpreted at all: binary garbage, an undecodable character stream,
// or a container whose required parts are missing. Recoverable oddities are
// fidelity warnings instead.
type EncodingError struct {
	Format Format
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable %s input: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable %s input: %s", e.Format, e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Unreadable builds an EncodingError in place.
func Unreadable(f Format, err error, format string, args ...any) error {
	return &EncodingError{Format: f, Reason: fmt.Sprintf(format, args...), Err: err}
}

// ResourceError is returned by export operations when the environment, not
// the document, is at fault: an unwritable target, a full disk, a missing
// directory. Content that merely cannot be represented in the target format
// degrades with a warning instead.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
