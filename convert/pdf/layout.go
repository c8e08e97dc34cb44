package pdf

import (
	"fmt"
	"strings"

	"olc/common"
	"olc/doc"
	"olc/imgutil"
	"olc/style"
)

const (
	defaultSizePt      = 12.0
	defaultLineSpacing = 1.2
	listIndentPt       = 18.0
	paragraphGapPt     = 6.0
)

type segment struct {
	text          string
	font          int // 1..4: regular, bold, oblique, bold oblique
	size          float64
	color         [3]float64
	letterSpacing float64
}

type placedText struct {
	x, y float64
	seg  segment
}

type placedImage struct {
	x, y, w, h float64
	ref        string
}

type page struct {
	texts  []placedText
	images []placedImage
}

// layout paginates the document into absolutely positioned text and image
// placements.
type layouter struct {
	d        *doc.Document
	warnings []common.FidelityWarning

	pages   []*page
	cur     *page
	y       float64
	width   float64
	height  float64
	margin  float64
	tabled  bool // table-flattened warning emitted
}

func newLayouter(d *doc.Document) *layouter {
	l := &layouter{
		d:      d,
		width:  d.Meta.Page.WidthPt,
		height: d.Meta.Page.HeightPt,
		margin: d.Meta.Page.MarginPt,
	}
	l.newPage()
	return l
}

func (l *layouter) newPage() {
	l.cur = &page{}
	l.pages = append(l.pages, l.cur)
	l.y = l.height - l.margin
}

func (l *layouter) contentWidth() float64 {
	return l.width - 2*l.margin
}

// advance moves the cursor down, starting a new page when the requested
// height no longer fits.
func (l *layouter) advance(h float64) {
	if l.y-h < l.margin {
		l.newPage()
	}
	l.y -= h
}

func (l *layouter) run() {
	for _, b := range l.d.Blocks {
		switch b.Kind {
		case doc.BlockParagraph:
			l.paragraph(b.Para, 0, "")
		case doc.BlockListItem:
			marker := "• "
			if b.List.Ordered {
				marker = "1. "
			}
			l.paragraph(&b.List.Para, float64(b.List.Level)*listIndentPt, marker)
		case doc.BlockTable:
			l.table(b.Table)
		case doc.BlockPageBreak:
			l.newPage()
		}
	}
}

// word is a measured fragment that wraps as a unit.
type word struct {
	seg   segment
	width float64
	brk   bool // hard line break before this word
	image *placedImage
}

func (l *layouter) paragraph(p *doc.Paragraph, indent float64, marker string) {
	words := l.words(p, marker)
	attrs := l.d.Styles.Resolve(p.Attrs, p.StyleName)
	spacing := defaultLineSpacing
	if attrs.LineSpacing != nil {
		spacing = *attrs.LineSpacing
	}
	align := style.AlignLeft
	if attrs.Alignment != nil {
		align = *attrs.Alignment
	}

	avail := l.contentWidth() - indent
	var line []word
	var lineWidth float64
	flush := func() {
		if len(line) == 0 {
			l.advance(defaultSizePt * spacing)
			return
		}
		maxSize := 0.0
		for _, w := range line {
			if w.seg.size > maxSize {
				maxSize = w.seg.size
			}
			if w.image != nil && w.image.h > maxSize {
				maxSize = w.image.h
			}
		}
		l.advance(maxSize * spacing)
		x := l.margin + indent
		switch align {
		case style.AlignCenter:
			x += (avail - lineWidth) / 2
		case style.AlignRight:
			x += avail - lineWidth
		}
		for _, w := range line {
			if w.image != nil {
				img := *w.image
				img.x, img.y = x, l.y
				l.cur.images = append(l.cur.images, img)
				x += img.w
				continue
			}
			l.cur.texts = append(l.cur.texts, placedText{x: x, y: l.y, seg: w.seg})
			x += w.width
		}
		line = nil
		lineWidth = 0
	}

	for _, w := range words {
		if w.brk {
			flush()
			continue
		}
		if lineWidth > 0 && lineWidth+w.width > avail {
			flush()
			// A leading space carried over from the wrap point is noise.
			if strings.TrimSpace(w.seg.text) == "" && w.image == nil {
				continue
			}
		}
		line = append(line, w)
		lineWidth += w.width
	}
	flush()
	l.y -= paragraphGapPt
}

// words measures the paragraph's runs split at whitespace, keeping each
// word's resolved style.
func (l *layouter) words(p *doc.Paragraph, marker string) []word {
	var out []word
	if marker != "" {
		seg := segment{text: marker, font: 1, size: defaultSizePt, color: [3]float64{0, 0, 0}}
		out = append(out, word{seg: seg, width: textWidth(marker, seg.size, 0)})
	}
	for _, r := range p.Runs {
		switch r.Kind {
		case doc.RunBreak:
			out = append(out, word{brk: true})
			continue
		case doc.RunImage:
			if img := l.imageWord(r); img != nil {
				out = append(out, *img)
			}
			continue
		case doc.RunText, doc.RunSymbol:
		default:
			continue
		}
		text := r.Text
		if r.Kind == doc.RunSymbol && r.Symbol != nil {
			text = r.Symbol.Glyph
		}
		seg := l.segmentFor(p, r)
		for _, part := range splitKeepSpace(text) {
			s := seg
			s.text = part
			out = append(out, word{seg: s, width: textWidth(part, s.size, s.letterSpacing)})
		}
	}
	return out
}

func (l *layouter) segmentFor(p *doc.Paragraph, r *doc.Run) segment {
	attrs := l.d.Resolve(p, r)
	seg := segment{font: 1, size: defaultSizePt, color: [3]float64{0, 0, 0}}
	if attrs.SizePt != nil {
		seg.size = *attrs.SizePt
	}
	bold := attrs.Bold != nil && *attrs.Bold
	italic := attrs.Italic != nil && *attrs.Italic
	switch {
	case bold && italic:
		seg.font = 4
	case bold:
		seg.font = 2
	case italic:
		seg.font = 3
	}
	if attrs.Color != nil {
		if rgb, ok := parseHexColor(*attrs.Color); ok {
			seg.color = rgb
		}
	}
	if attrs.LetterSpacingPt != nil {
		seg.letterSpacing = *attrs.LetterSpacingPt
	}
	return seg
}

func (l *layouter) imageWord(r *doc.Run) *word {
	img, ok := l.d.Images[r.ImageRef]
	if !ok {
		l.warnings = append(l.warnings, common.Warn("missing-image", "",
			"image %q has no resource and was skipped", r.ImageRef))
		return nil
	}
	wPt, hPt := imgutil.DisplaySize(img.Width, img.Height)
	if wPt <= 0 || hPt <= 0 {
		return nil
	}
	if wPt > l.contentWidth() {
		scale := l.contentWidth() / wPt
		wPt *= scale
		hPt *= scale
	}
	return &word{
		width: wPt,
		image: &placedImage{w: wPt, h: hPt, ref: r.ImageRef},
	}
}

// table renders rows as tab-separated text lines. Real grid layout is out
// of reach for a text-only page model, so the degradation is reported.
func (l *layouter) table(t *doc.Table) {
	if !l.tabled {
		l.warnings = append(l.warnings, common.Warn("table-flattened", "",
			"tables are rendered as plain text rows"))
		l.tabled = true
	}
	for _, row := range t.Rows {
		var cells []string
		for _, cell := range row {
			var parts []string
			for _, b := range cell.Blocks {
				if p := b.Paragraph(); p != nil {
					parts = append(parts, plainRuns(p))
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		p := &doc.Paragraph{Runs: []*doc.Run{{Kind: doc.RunText, Text: strings.Join(cells, "    ")}}}
		l.paragraph(p, 0, "")
	}
}

func plainRuns(p *doc.Paragraph) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		switch r.Kind {
		case doc.RunText:
			sb.WriteString(r.Text)
		case doc.RunSymbol:
			if r.Symbol != nil {
				sb.WriteString(r.Symbol.Glyph)
			}
		case doc.RunBreak:
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

// splitKeepSpace splits text into words and the whitespace between them,
// so both wrap and measure independently.
func splitKeepSpace(s string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := r == ' ' || r == '\t'
		if i > 0 && space != inSpace {
			out = append(out, s[start:i])
			start = i
		}
		if i == 0 {
			inSpace = space
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func parseHexColor(s string) ([3]float64, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return [3]float64{}, false
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return [3]float64{}, false
	}
	return [3]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255}, true
}
