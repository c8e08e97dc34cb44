package codec

import "fmt"

// UnsupportedVersionError is returned when a file declares a format version
// newer than this codec understands. No best-effort read is attempted.
type UnsupportedVersionError struct {
	Version float32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported olc format version %.1f (max supported %.1f)", e.Version, Version)
}

// CorruptDocumentError is returned when the container or its payload is
// structurally invalid. Decoding never produces a partial document.
type CorruptDocumentError struct {
	Reason string
	Err    error
}

func (e *CorruptDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt olc document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt olc document: %s", e.Reason)
}

func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}

func corrupt(reason string, err error) error {
	return &CorruptDocumentError{Reason: reason, Err: err}
}
