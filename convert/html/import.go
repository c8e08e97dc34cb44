// Package html converts between documents and standalone HTML. Import
// understands the common structural and inline tags plus inline CSS; export
// produces a self-contained page with every style inlined, so the result
// renders the same with or without a stylesheet.
package html

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"olc/common"
	"olc/doc"
	"olc/imgutil"
	"olc/style"
)

// headingSizes maps h1..h6 to the point sizes used when defining heading
// styles on import.
var headingSizes = [6]float64{24, 20, 18, 16, 14, 12}

type importer struct {
	d        *doc.Document
	warnings []common.FidelityWarning
	log      *zap.Logger
	imgSeq   int
}

// Import parses HTML into a document. Unknown or unsupported elements keep
// their text content and produce a fidelity warning; only input that is not
// HTML at all fails.
func Import(data []byte, log *zap.Logger) (*doc.Document, []common.FidelityWarning, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, nil, common.Unreadable(common.FormatHTML, nil, "input contains NUL bytes, not an html file")
	}
	root, err := xhtml.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, common.Unreadable(common.FormatHTML, err, "unable to parse markup")
	}

	im := &importer{d: doc.New(), log: log}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	if lang := findLang(root); lang != "" {
		im.d.Meta.Lang = lang
	}
	im.blocks(body)
	log.Debug("imported html", zap.Int("blocks", len(im.d.Blocks)), zap.Int("warnings", len(im.warnings)))
	return im.d, im.warnings, nil
}

func (im *importer) warn(code, format string, args ...any) {
	im.warnings = append(im.warnings, common.Warn(code, fmt.Sprintf("blocks[%d]", len(im.d.Blocks)), format, args...))
}

// blocks walks element children emitting top-level blocks. Loose inline
// content between block elements is wrapped into an implicit paragraph.
func (im *importer) blocks(n *xhtml.Node) {
	var pending *doc.Paragraph
	flush := func() {
		if pending != nil && len(pending.Runs) > 0 {
			im.d.Blocks = append(im.d.Blocks, &doc.Block{Kind: doc.BlockParagraph, Para: pending})
		}
		pending = nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xhtml.TextNode:
			// Whitespace between block elements is markup indentation.
			if strings.TrimSpace(c.Data) != "" {
				if pending == nil {
					pending = &doc.Paragraph{}
				}
				pending.Runs = append(pending.Runs, doc.NewTextRun(collapseSpace(c.Data), style.Attrs{}))
			}
		case xhtml.ElementNode:
			switch c.DataAtom {
			case atom.P, atom.Div:
				flush()
				im.paragraph(c, "")
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				flush()
				im.heading(c)
			case atom.Ul, atom.Ol:
				flush()
				im.list(c, 1, c.DataAtom == atom.Ol)
			case atom.Table:
				flush()
				im.table(c)
			case atom.Hr:
				flush()
				im.d.Blocks = append(im.d.Blocks, doc.NewPageBreak())
			case atom.Script, atom.Style, atom.Head:
				// non-content
			case atom.Br:
				if pending == nil {
					pending = &doc.Paragraph{}
				}
				pending.Runs = append(pending.Runs, &doc.Run{Kind: doc.RunBreak})
			default:
				if isInline(c.DataAtom) {
					if pending == nil {
						pending = &doc.Paragraph{}
					}
					im.runs(c, style.Attrs{}, pending)
				} else {
					im.warn("unknown-element", "element <%s> not supported, keeping its text", c.Data)
					flush()
					im.paragraph(c, "")
				}
			}
		}
	}
	flush()
}

func (im *importer) paragraph(n *xhtml.Node, styleName string) {
	p := im.buildParagraph(n, styleName)
	im.d.Blocks = append(im.d.Blocks, &doc.Block{Kind: doc.BlockParagraph, Para: p})
}

func (im *importer) buildParagraph(n *xhtml.Node, styleName string) *doc.Paragraph {
	attrs, unknown := parseInlineStyle(attrValue(n, "style"))
	for _, prop := range unknown {
		im.warn("unknown-css-property", "css property %q dropped", prop)
	}
	p := &doc.Paragraph{StyleName: styleName, Attrs: attrs}
	im.runs(n, style.Attrs{}, p)
	return p
}

func (im *importer) heading(n *xhtml.Node) {
	level := int(n.Data[1] - '0')
	name := fmt.Sprintf("Heading %d", level)
	if _, ok := im.d.Styles.Lookup(name); !ok {
		attrs := style.Attrs{Bold: style.Bool(true), SizePt: style.Float(headingSizes[level-1])}
		if err := im.d.Styles.Define(name, attrs, ""); err != nil {
			im.log.Warn("unable to define heading style", zap.String("name", name), zap.Error(err))
		}
	}
	im.paragraph(n, name)
}

func (im *importer) list(n *xhtml.Node, level int, ordered bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Li:
			p := im.buildParagraph(c, "")
			im.d.Blocks = append(im.d.Blocks, &doc.Block{Kind: doc.BlockListItem, List: &doc.ListItem{
				Level:   level,
				Ordered: ordered,
				Para:    *p,
			}})
			// Nested lists inside the item become deeper items.
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				if gc.Type == xhtml.ElementNode && (gc.DataAtom == atom.Ul || gc.DataAtom == atom.Ol) {
					im.list(gc, level+1, gc.DataAtom == atom.Ol)
				}
			}
		case atom.Ul, atom.Ol:
			im.list(c, level+1, c.DataAtom == atom.Ol)
		}
	}
}

func (im *importer) table(n *xhtml.Node) {
	t := &doc.Table{}
	cols := 0
	var scanRows func(*xhtml.Node)
	scanRows = func(n *xhtml.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xhtml.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				scanRows(c)
			case atom.Tr:
				var row []*doc.Cell
				for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
					if cc.Type == xhtml.ElementNode && (cc.DataAtom == atom.Td || cc.DataAtom == atom.Th) {
						cell := &doc.Cell{}
						p := im.buildParagraph(cc, "")
						if cc.DataAtom == atom.Th && p.Attrs.Bold == nil {
							p.Attrs.Bold = style.Bool(true)
						}
						cell.Blocks = []*doc.Block{{Kind: doc.BlockParagraph, Para: p}}
						row = append(row, cell)
					}
				}
				if len(row) > cols {
					cols = len(row)
				}
				t.Rows = append(t.Rows, row)
			}
		}
	}
	scanRows(n)
	if len(t.Rows) == 0 {
		im.warn("empty-table", "table without rows dropped")
		return
	}
	// Pad ragged rows so the model's rectangular invariant holds.
	for ri, row := range t.Rows {
		for len(row) < cols {
			row = append(row, &doc.Cell{})
		}
		t.Rows[ri] = row
	}
	im.d.Blocks = append(im.d.Blocks, &doc.Block{Kind: doc.BlockTable, Table: t})
}

// runs flattens inline content of n into p, overlaying formatting as tags
// nest.
func (im *importer) runs(n *xhtml.Node, inherited style.Attrs, p *doc.Paragraph) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xhtml.TextNode:
			text := collapseSpace(c.Data)
			if text == "" || (text == " " && len(p.Runs) == 0) {
				continue
			}
			p.Runs = append(p.Runs, doc.NewTextRun(text, inherited.Clone()))
		case xhtml.ElementNode:
			attrs := inherited.Clone()
			switch c.DataAtom {
			case atom.B, atom.Strong:
				attrs.Bold = style.Bool(true)
			case atom.I, atom.Em:
				attrs.Italic = style.Bool(true)
			case atom.U:
				attrs.Underline = style.Bool(true)
			case atom.S, atom.Strike, atom.Del:
				attrs.Strike = style.Bool(true)
			case atom.Br:
				p.Runs = append(p.Runs, &doc.Run{Kind: doc.RunBreak})
				continue
			case atom.Img:
				im.image(c, p)
				continue
			case atom.Span, atom.A, atom.Font:
			default:
				if !isInline(c.DataAtom) {
					im.warn("unknown-element", "element <%s> inside paragraph, keeping its text", c.Data)
				}
			}
			local, unknown := parseInlineStyle(attrValue(c, "style"))
			for _, prop := range unknown {
				im.warn("unknown-css-property", "css property %q dropped", prop)
			}
			im.runs(c, style.Overlay(local, attrs), p)
		}
	}
}

// image resolves an <img> element. Only data: URIs can be embedded; remote
// references degrade to a warning since import never touches the network.
func (im *importer) image(n *xhtml.Node, p *doc.Paragraph) {
	src := attrValue(n, "src")
	data, ok := decodeDataURI(src)
	if !ok {
		im.warn("external-image-dropped", "image %q is not embedded and was dropped", truncate(src, 64))
		return
	}
	mime, err := imgutil.SniffMIME(data)
	if err != nil {
		im.warn("bad-image-dropped", "embedded image is not a supported raster format")
		return
	}
	w, h, err := imgutil.Dimensions(data)
	if err != nil {
		im.warn("bad-image-dropped", "embedded image cannot be decoded")
		return
	}
	im.imgSeq++
	name := fmt.Sprintf("image%d", im.imgSeq)
	im.d.Images[name] = &doc.ImageResource{Name: name, MIME: mime, Width: w, Height: h, Data: data}
	p.Runs = append(p.Runs, &doc.Run{Kind: doc.RunImage, ImageRef: name})
}

func decodeDataURI(src string) ([]byte, bool) {
	if !strings.HasPrefix(src, "data:") {
		return nil, false
	}
	idx := strings.Index(src, ";base64,")
	if idx < 0 {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(src[idx+len(";base64,"):])
	if err != nil {
		return nil, false
	}
	return data, true
}

func isInline(a atom.Atom) bool {
	switch a {
	case atom.B, atom.Strong, atom.I, atom.Em, atom.U, atom.S, atom.Strike, atom.Del,
		atom.Span, atom.A, atom.Font, atom.Br, atom.Img, atom.Sub, atom.Sup, atom.Code, atom.Small:
		return true
	}
	return false
}

func findElement(n *xhtml.Node, a atom.Atom) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findLang(root *xhtml.Node) string {
	if html := findElement(root, atom.Html); html != nil {
		return attrValue(html, "lang")
	}
	return ""
}

func attrValue(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace folds runs of whitespace into single spaces the way HTML
// rendering does. Whitespace-only input collapses to a single space so
// separators between inline elements survive.
func collapseSpace(s string) string {
	out := strings.Join(strings.Fields(s), " ")
	if out == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	if isSpaceByte(s[0]) {
		out = " " + out
	}
	if isSpaceByte(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
