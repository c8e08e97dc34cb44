package txt

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"olc/common"
	"olc/doc"
)

// Options controls text export.
type Options struct {
	// Encoding is the IANA name of the target character set. Empty means
	// UTF-8. Characters the target set cannot express fail the export
	// since silently mangling text defeats the point of a text file.
	Encoding string
}

// Export writes the document as plain text: paragraphs separated by blank
// lines, table cells by tabs, page breaks as form feeds. Everything that is
// not text degrades to a warning.
func Export(w io.Writer, d *doc.Document, opts Options, log *zap.Logger) ([]common.FidelityWarning, error) {
	var warnings []common.FidelityWarning
	styled, images := false, 0
	d.Walk(func(path string, n doc.Node) bool {
		if n.Run != nil {
			if n.Run.Kind == doc.RunImage {
				images++
			}
			if !n.Run.Attrs.IsZero() {
				styled = true
			}
		}
		if n.Block != nil {
			if p := n.Block.Paragraph(); p != nil && (p.StyleName != "" || !p.Attrs.IsZero()) {
				styled = true
			}
		}
		return true
	})
	if styled {
		warnings = append(warnings, common.Warn("formatting-dropped", "",
			"plain text cannot represent character or paragraph formatting"))
	}
	if images > 0 {
		warnings = append(warnings, common.Warn("images-dropped", "",
			"%d embedded image(s) have no plain text representation", images))
	}

	text := render(d)
	if opts.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(opts.Encoding)
		if err != nil || enc == nil {
			return warnings, fmt.Errorf("unknown encoding %q", opts.Encoding)
		}
		out, _, err := transform.Bytes(enc.NewEncoder(), []byte(text))
		if err != nil {
			return warnings, fmt.Errorf("document contains characters not representable in %s: %w", opts.Encoding, err)
		}
		if _, err := w.Write(out); err != nil {
			return warnings, &common.ResourceError{Op: "write", Path: "text output", Err: err}
		}
		log.Debug("exported plain text", zap.String("encoding", opts.Encoding), zap.Int("bytes", len(out)))
		return warnings, nil
	}
	if _, err := io.WriteString(w, text); err != nil {
		return warnings, &common.ResourceError{Op: "write", Path: "text output", Err: err}
	}
	log.Debug("exported plain text", zap.Int("bytes", len(text)))
	return warnings, nil
}

// render linearizes blocks with blank lines between paragraphs and form
// feeds at page breaks, mirroring what Import parses back.
func render(d *doc.Document) string {
	var sb strings.Builder
	prevContent := false
	for i, b := range d.Blocks {
		if b.Kind == doc.BlockPageBreak {
			sb.WriteString("\f")
			prevContent = false
			continue
		}
		if prevContent {
			sb.WriteString("\n\n")
		}
		sb.WriteString(d.PlainText(i, i+1))
		prevContent = true
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}
