package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"io"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"olc/common"
	"olc/doc"
)

var fontNames = [5]string{"", "Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique"}

// Export renders the document as a paginated PDF. Content the page model
// cannot express degrades with a warning; only output failures are errors.
func Export(w io.Writer, d *doc.Document, log *zap.Logger) ([]common.FidelityWarning, error) {
	l := newLayouter(d)
	l.run()
	warnings := l.warnings

	f := newFile()
	catalogNum := f.alloc() // object 1 by construction, the trailer's /Root
	pagesNum := f.alloc()

	fontNums := [5]int{}
	for i := 1; i <= 4; i++ {
		fontNums[i] = f.alloc()
		f.set(fontNums[i], []byte(fmt.Sprintf(
			"<</Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding>>", fontNames[i])))
	}

	// Image XObjects, one per referenced resource.
	imageNums := make(map[string]int)
	unmappable := false
	for _, p := range l.pages {
		for _, pi := range p.images {
			if _, done := imageNums[pi.ref]; done {
				continue
			}
			num, err := writeImageObject(f, d.Images[pi.ref])
			if err != nil {
				warnings = append(warnings, common.Warn("image-dropped", "",
					"image %q cannot be rendered: %v", pi.ref, err))
				continue
			}
			imageNums[pi.ref] = num
		}
	}

	var pageNums []int
	for _, p := range l.pages {
		content, lost := contentStream(p, imageNums)
		if lost {
			unmappable = true
		}
		contentNum := f.alloc()
		f.set(contentNum, stream("", content))

		pageNum := f.alloc()
		pageNums = append(pageNums, pageNum)
		var res bytes.Buffer
		res.WriteString("/Font <<")
		for i := 1; i <= 4; i++ {
			fmt.Fprintf(&res, "/F%d %d 0 R ", i, fontNums[i])
		}
		res.WriteString(">>")
		if len(imageNums) > 0 {
			res.WriteString(" /XObject <<")
			for ref, num := range imageNums {
				fmt.Fprintf(&res, "/%s %d 0 R ", xobjectName(ref, imageNums), num)
			}
			res.WriteString(">>")
		}
		f.set(pageNum, []byte(fmt.Sprintf(
			"<</Type /Page /Parent %d 0 R /MediaBox [0 0 %.2f %.2f] /Resources <<%s>> /Contents %d 0 R>>",
			pagesNum, d.Meta.Page.WidthPt, d.Meta.Page.HeightPt, res.String(), contentNum)))
	}

	var kids bytes.Buffer
	for _, n := range pageNums {
		fmt.Fprintf(&kids, "%d 0 R ", n)
	}
	f.set(pagesNum, []byte(fmt.Sprintf("<</Type /Pages /Count %d /Kids [%s]>>", len(pageNums), kids.String())))
	f.set(catalogNum, []byte(fmt.Sprintf("<</Type /Catalog /Pages %d 0 R>>", pagesNum)))

	if unmappable {
		warnings = append(warnings, common.Warn("characters-substituted", "",
			"characters outside the WinAnsi set were replaced"))
	}
	if _, err := w.Write(f.bytes()); err != nil {
		return warnings, &common.ResourceError{Op: "write", Path: "pdf output", Err: err}
	}
	log.Debug("exported pdf",
		zap.Int("pages", len(l.pages)),
		zap.Int("warnings", len(warnings)))
	return warnings, nil
}

// contentStream builds the operator stream for one page. Reports whether
// any character had to be substituted.
func contentStream(p *page, imageNums map[string]int) ([]byte, bool) {
	var buf bytes.Buffer
	lost := false
	enc := charmap.Windows1252.NewEncoder()
	for _, t := range p.texts {
		encoded, err := enc.Bytes([]byte(t.seg.text))
		if err != nil {
			encoded, lost = substitute(t.seg.text), true
		}
		fmt.Fprintf(&buf, "BT /F%d %.2f Tf %.3f %.3f %.3f rg ",
			t.seg.font, t.seg.size, t.seg.color[0], t.seg.color[1], t.seg.color[2])
		if t.seg.letterSpacing != 0 {
			fmt.Fprintf(&buf, "%.2f Tc ", t.seg.letterSpacing)
		}
		fmt.Fprintf(&buf, "1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n", t.x, t.y, escapeString(encoded))
	}
	for _, pi := range p.images {
		if _, ok := imageNums[pi.ref]; !ok {
			continue
		}
		fmt.Fprintf(&buf, "q %.2f 0 0 %.2f %.2f %.2f cm /%s Do Q\n",
			pi.w, pi.h, pi.x, pi.y, xobjectName(pi.ref, imageNums))
	}
	return buf.Bytes(), lost
}

// substitute maps each rune through WinAnsi individually, replacing the
// unmappable ones with a question mark.
func substitute(s string) []byte {
	enc := charmap.Windows1252.NewEncoder()
	var out bytes.Buffer
	for _, r := range s {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			out.WriteByte('?')
			continue
		}
		out.Write(b)
	}
	return out.Bytes()
}

// writeImageObject embeds the raster as a flate-compressed DeviceRGB
// XObject.
func writeImageObject(f *file, img *doc.ImageResource) (int, error) {
	if img == nil {
		return 0, fmt.Errorf("no resource")
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return 0, err
	}
	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	raw := make([]byte, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			raw = append(raw, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	num := f.alloc()
	dict := fmt.Sprintf(
		"/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode ",
		w, h)
	f.set(num, stream(dict, compressed.Bytes()))
	return num, nil
}

// xobjectName derives the resource name for an image reference.
func xobjectName(ref string, imageNums map[string]int) string {
	return fmt.Sprintf("Im%d", imageNums[ref])
}
