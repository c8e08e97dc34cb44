// Package common holds the small shared vocabulary (formats, fidelity
// warnings) used by both the conversion orchestrator and the per-format
// adapters, so the adapters never need to import the orchestrator.
package common

import (
	"fmt"
	"strings"
)

// Format identifies a persisted document format.
type Format int

const (
	FormatUnknown Format = iota
	FormatOLC            // native, lossless
	FormatDocx
	FormatOdt
	FormatHTML
	FormatTxt
	FormatPDF // export only
)

func (f Format) String() string {
	switch f {
	case FormatOLC:
		return "olc"
	case FormatDocx:
		return "docx"
	case FormatOdt:
		return "odt"
	case FormatHTML:
		return "html"
	case FormatTxt:
		return "txt"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// Ext returns the canonical file extension with the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// Lossless reports whether the format preserves the full document model.
// Only the native format does; save-then-reopen round trips must go
// through it.
func (f Format) Lossless() bool {
	return f == FormatOLC
}

// Importable reports whether an import adapter exists for the format.
func (f Format) Importable() bool {
	switch f {
	case FormatOLC, FormatDocx, FormatOdt, FormatHTML, FormatTxt:
		return true
	}
	return false
}

// Exportable reports whether an export adapter exists for the format.
func (f Format) Exportable() bool {
	return f != FormatUnknown
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(in string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(in, ".")) {
	case "olc":
		return FormatOLC, nil
	case "docx":
		return FormatDocx, nil
	case "odt":
		return FormatOdt, nil
	case "html", "htm", "xhtml":
		return FormatHTML, nil
	case "txt", "text":
		return FormatTxt, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown format %q", in)
	}
}
