// Package convert orchestrates document conversions: it detects formats,
// dispatches to the per-format adapters and guarantees that a failed or
// canceled conversion never leaves a partial output file behind.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"olc/codec"
	"olc/common"
	"olc/convert/docx"
	"olc/convert/html"
	"olc/convert/odt"
	"olc/convert/pdf"
	"olc/convert/txt"
	"olc/doc"
	"olc/imgutil"
)

// Options tunes format-specific export behavior.
type Options struct {
	// TextEncoding selects the character set for plain text export by
	// IANA name. Empty means UTF-8.
	TextEncoding string
	// FixZip rewrites odt output without data descriptors for consumers
	// that cannot handle them.
	FixZip bool
	// Overwrite allows replacing an existing destination file.
	Overwrite bool
}

// Import parses raw document bytes in the given format. Pictures coming in
// through a foreign format are normalized on the way; native documents pass
// through untouched.
func Import(data []byte, format common.Format, log *zap.Logger) (*doc.Document, []common.FidelityWarning, error) {
	var (
		d        *doc.Document
		warnings []common.FidelityWarning
		err      error
	)
	switch format {
	case common.FormatOLC:
		d, err = codec.Decode(bytes.NewReader(data))
		return d, nil, err
	case common.FormatDocx:
		d, warnings, err = docx.Import(data, log)
	case common.FormatOdt:
		d, warnings, err = odt.Import(data, log)
	case common.FormatHTML:
		d, warnings, err = html.Import(data, log)
	case common.FormatTxt:
		d, warnings, err = txt.Import(data, log)
	default:
		return nil, nil, fmt.Errorf("no import support for format %q", format)
	}
	if err != nil {
		return d, warnings, err
	}
	warnings = append(warnings, normalizeImages(d, log)...)
	return d, warnings, nil
}

// normalizeImages re-encodes imported pictures to PNG and scales down those
// wider than the printable area, so every exporter sees one raster
// vocabulary. Changed images are reported as fidelity warnings.
func normalizeImages(d *doc.Document, log *zap.Logger) []common.FidelityWarning {
	names := make([]string, 0, len(d.Images))
	for name := range d.Images {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []common.FidelityWarning
	maxPx := int(imgutil.MaxWidthInches * imgutil.DPI)
	for _, name := range names {
		img := d.Images[name]
		data, err := imgutil.ToPNG(img.Data)
		if err == nil {
			data, err = imgutil.FitWidth(data, maxPx)
		}
		if err != nil {
			warnings = append(warnings, common.FidelityWarning{
				Code: "image-unreadable", Path: "images[" + name + "]", Detail: err.Error()})
			continue
		}
		if bytes.Equal(data, img.Data) {
			continue
		}
		img.Data = data
		img.MIME = "image/png"
		if w, h, err := imgutil.Dimensions(data); err == nil {
			img.Width, img.Height = w, h
		}
		log.Debug("normalized image", zap.String("name", name), zap.Int("bytes", len(data)))
		warnings = append(warnings, common.FidelityWarning{
			Code: "image-normalized", Path: "images[" + name + "]",
			Detail: "re-encoded as png within printable width"})
	}
	return warnings
}

// ImportFile reads and parses a document, detecting the format from content
// and file extension.
func ImportFile(path string, log *zap.Logger) (*doc.Document, common.Format, []common.FidelityWarning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.FormatUnknown, nil, &common.ResourceError{Op: "read", Path: path, Err: err}
	}

	format := DetectFormat(path, data)
	if !format.Importable() {
		return nil, format, nil, fmt.Errorf("cannot import %q: unsupported format %q", path, format)
	}

	d, warnings, err := Import(data, format, log)
	if err != nil {
		return nil, format, warnings, err
	}
	log.Debug("imported document",
		zap.String("file", path),
		zap.Stringer("format", format),
		zap.Int("blocks", len(d.Blocks)),
		zap.Int("warnings", len(warnings)))
	return d, format, warnings, nil
}

// Export writes the document to w in the given format. The document is
// snapshotted first, so edits made while the conversion runs cannot tear
// the output, and the write is abandoned once ctx is canceled.
func Export(ctx context.Context, w io.Writer, d *doc.Document, format common.Format, opts Options, log *zap.Logger) ([]common.FidelityWarning, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := d.Clone()
	cw := &ctxWriter{ctx: ctx, w: w}

	switch format {
	case common.FormatOLC:
		return nil, codec.Encode(cw, snapshot)
	case common.FormatDocx:
		return docx.Export(cw, snapshot, log)
	case common.FormatOdt:
		return odt.Export(cw, snapshot, log)
	case common.FormatHTML:
		return html.Export(cw, snapshot, log)
	case common.FormatTxt:
		return txt.Export(cw, snapshot, txt.Options{Encoding: opts.TextEncoding}, log)
	case common.FormatPDF:
		return pdf.Export(cw, snapshot, log)
	default:
		return nil, fmt.Errorf("no export support for format %q", format)
	}
}

// ExportFile writes the document to path atomically: output goes to a
// temporary file next to the destination and is moved into place only on
// success, so cancellation or failure leaves the destination untouched.
func ExportFile(ctx context.Context, d *doc.Document, path string, format common.Format, opts Options, log *zap.Logger) (warnings []common.FidelityWarning, rerr error) {
	if _, err := os.Stat(path); err == nil {
		if !opts.Overwrite {
			return nil, fmt.Errorf("output file already exists: %s", path)
		}
		log.Warn("Overwriting existing file", zap.String("file", path))
	} else if !os.IsNotExist(err) {
		return nil, &common.ResourceError{Op: "stat", Path: path, Err: err}
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &common.ResourceError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, &common.ResourceError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	warnings, err = Export(ctx, tmp, d, format, opts, log)
	if err != nil {
		return warnings, multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return warnings, &common.ResourceError{Op: "close", Path: tmpName, Err: err}
	}

	if format == common.FormatOdt && opts.FixZip {
		// FixZip writes through its own temp file and renames on success,
		// the export temp is removed by the deferred cleanup
		return warnings, odt.FixZip(tmpName, path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return warnings, &common.ResourceError{Op: "rename", Path: path, Err: err}
	}
	return warnings, nil
}

// ctxWriter fails writes once the context is canceled, aborting an export
// at the next output boundary.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}
