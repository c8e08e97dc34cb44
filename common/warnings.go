package common

import "fmt"

// FidelityWarning records content or formatting that a conversion could
// not fully preserve. Warnings are not errors: the operation still
// succeeds, the loss is surfaced instead of hidden.
type FidelityWarning struct {
	// Code is a stable machine-readable identifier, e.g. "tracked-change-dropped".
	Code string
	// Path locates the loss in the document tree when known.
	Path string
	// Detail is the human-readable description.
	Detail string
}

func (w FidelityWarning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Detail)
	}
	return fmt.Sprintf("%s at %s: %s", w.Code, w.Path, w.Detail)
}

// Warn builds a warning in place.
func Warn(code, path, format string, args ...any) FidelityWarning {
	return FidelityWarning{Code: code, Path: path, Detail: fmt.Sprintf(format, args...)}
}
