// Package codec reads and writes the native .olc document container.
//
// The container is a fixed header followed by a gzip-compressed Amazon Ion
// binary payload:
//
//	bytes 0..3   magic "OLC!"
//	bytes 4..7   format version, little-endian float32
//	bytes 8..15  compressed payload size, little-endian uint64
//	bytes 16..   gzip stream
//
// The native format is the only lossless one: every block, run, style and
// image resource survives an encode/decode round trip unchanged.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/maruel/natural"

	"olc/doc"
)

const (
	// Magic identifies an .olc container.
	Magic = "OLC!"
	// Version is the current format version. Readers accept anything up to
	// and including it.
	Version float32 = 1.0

	headerSize = 16
	// maxPayloadSize caps the declared compressed size so a garbled length
	// field cannot drive a huge allocation.
	maxPayloadSize = 1 << 31
)

// Encode writes the document to w in the native container format.
func Encode(w io.Writer, d *doc.Document) error {
	body := bodyFromDocument(d)
	raw, err := ion.MarshalBinary(body)
	if err != nil {
		return fmt.Errorf("unable to serialize document: %w", err)
	}

	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("unable to compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to compress document: %w", err)
	}

	var hdr [headerSize]byte
	copy(hdr[:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], math.Float32bits(Version))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(payload.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}
	if _, err := io.Copy(w, &payload); err != nil {
		return fmt.Errorf("unable to write payload: %w", err)
	}
	return nil
}

// Decode reads a native container from r and reconstructs the document.
// It returns *UnsupportedVersionError for files written by a newer format
// revision and *CorruptDocumentError for anything structurally invalid;
// it never returns a partially decoded document.
func Decode(r io.Reader) (*doc.Document, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, corrupt("short header", err)
	}
	if string(hdr[:4]) != Magic {
		return nil, corrupt(fmt.Sprintf("bad magic %q", hdr[:4]), nil)
	}
	version := math.Float32frombits(binary.LittleEndian.Uint32(hdr[4:8]))
	if version != version || version > Version { // NaN or too new
		return nil, &UnsupportedVersionError{Version: version}
	}
	size := binary.LittleEndian.Uint64(hdr[8:16])
	if size == 0 || size > maxPayloadSize {
		return nil, corrupt(fmt.Sprintf("implausible payload size %d", size), nil)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, corrupt("truncated payload", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, corrupt("payload is not a gzip stream", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, corrupt("unable to decompress payload", err)
	}
	if err := zr.Close(); err != nil {
		return nil, corrupt("unable to decompress payload", err)
	}

	var body fileBody
	if err := ion.Unmarshal(raw, &body); err != nil {
		return nil, corrupt("unable to parse payload", err)
	}
	return body.toDocument()
}

// validate runs the structural checks a freshly decoded document must pass:
// rectangular tables and no dangling style or image references.
func validate(d *doc.Document) error {
	var fail error
	d.Walk(func(path string, n doc.Node) bool {
		if n.Block != nil && n.Block.Kind == doc.BlockTable {
			if cols := n.Block.Table.Cols(); cols >= 0 {
				for _, row := range n.Block.Table.Rows {
					if len(row) != cols {
						fail = corrupt(fmt.Sprintf("%s: table is not rectangular", path), nil)
						return false
					}
				}
			}
		}
		if n.Para != nil && n.Para.StyleName != "" {
			if _, ok := d.Styles.Lookup(n.Para.StyleName); !ok {
				fail = corrupt(fmt.Sprintf("%s: undefined style %q", path, n.Para.StyleName), nil)
				return false
			}
		}
		if n.Run != nil && n.Run.Kind == doc.RunImage {
			if _, ok := d.Images[n.Run.ImageRef]; !ok {
				fail = corrupt(fmt.Sprintf("%s: undefined image %q", path, n.Run.ImageRef), nil)
				return false
			}
		}
		return true
	})
	return fail
}

func sortedImageNames(images map[string]*doc.ImageResource) []string {
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}
