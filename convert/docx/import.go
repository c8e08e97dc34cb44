// Package docx converts between documents and the OOXML wordprocessing
// format. Both directions go through etree rather than a schema-generated
// binding: the subset of WordprocessingML in play is small and the files in
// the wild are too inconsistent for strict unmarshaling.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"olc/common"
	"olc/doc"
	"olc/imgutil"
	"olc/style"
)

type importer struct {
	d        *doc.Document
	warnings []common.FidelityWarning
	log      *zap.Logger

	rels       map[string]string // relationship id -> target path inside the archive
	media      map[string][]byte // archive path -> bytes
	ordered    map[string]bool   // numbering id -> is a numbered (vs bullet) list
	styleNames map[string]string // style id -> display name
	imgSeq     int
}

// Import parses a .docx archive into a document. Content that the model
// cannot hold is dropped with a fidelity warning; only a broken archive or
// a missing document part fails the import.
func Import(data []byte, log *zap.Logger) (*doc.Document, []common.FidelityWarning, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, common.Unreadable(common.FormatDocx, err, "not a zip archive")
	}

	im := &importer{
		d:          doc.New(),
		log:        log,
		rels:       make(map[string]string),
		media:      make(map[string][]byte),
		ordered:    make(map[string]bool),
		styleNames: make(map[string]string),
	}

	var docXML []byte
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			if docXML, err = readZipFile(f); err != nil {
				return nil, nil, common.Unreadable(common.FormatDocx, err, "unable to read document part")
			}
		case f.Name == "word/styles.xml":
			if raw, err := readZipFile(f); err == nil {
				im.styles(raw)
			}
		case f.Name == "word/numbering.xml":
			if raw, err := readZipFile(f); err == nil {
				im.numbering(raw)
			}
		case f.Name == "word/_rels/document.xml.rels":
			if raw, err := readZipFile(f); err == nil {
				im.relationships(raw)
			}
		case strings.HasPrefix(f.Name, "word/media/"):
			if raw, err := readZipFile(f); err == nil {
				im.media[f.Name] = raw
			}
		}
	}
	if docXML == nil {
		return nil, nil, common.Unreadable(common.FormatDocx, nil, "archive has no word/document.xml")
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(docXML); err != nil {
		return nil, nil, common.Unreadable(common.FormatDocx, err, "document part is not valid xml")
	}
	body := tree.FindElement("//w:body")
	if body == nil {
		return nil, nil, common.Unreadable(common.FormatDocx, nil, "document part has no body")
	}

	im.d.Blocks = im.blocks(body)
	im.sectionProperties(body)
	log.Debug("imported docx",
		zap.Int("blocks", len(im.d.Blocks)),
		zap.Int("images", len(im.d.Images)),
		zap.Int("warnings", len(im.warnings)))
	return im.d, im.warnings, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (im *importer) warn(code, format string, args ...any) {
	im.warnings = append(im.warnings, common.Warn(code, fmt.Sprintf("blocks[%d]", len(im.d.Blocks)), format, args...))
}

// styles loads named paragraph styles and the document defaults.
func (im *importer) styles(raw []byte) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		im.log.Warn("unable to parse styles part", zap.Error(err))
		return
	}
	if def := tree.FindElement("//w:docDefaults/w:rPrDefault/w:rPr"); def != nil {
		im.d.Styles.SetDefault(runAttrsFromRPr(def))
	}

	// Styles are registered under their display name; the part's internal
	// ids only matter for cross references. Parents may appear after
	// children, so define roots first and retry the rest until the list
	// stops shrinking.
	type pending struct {
		name, parentID string
		attrs          style.Attrs
	}
	for _, st := range tree.FindElements("//w:style") {
		if st.SelectAttrValue("w:type", "") != "paragraph" {
			continue
		}
		id := st.SelectAttrValue("w:styleId", "")
		if id == "" {
			continue
		}
		name := wVal(st.SelectElement("w:name"))
		if name == "" {
			name = id
		}
		im.styleNames[id] = name
	}
	var todo []pending
	for _, st := range tree.FindElements("//w:style") {
		if st.SelectAttrValue("w:type", "") != "paragraph" {
			continue
		}
		id := st.SelectAttrValue("w:styleId", "")
		if id == "" {
			continue
		}
		attrs := paraAttrsFromPPr(st.SelectElement("w:pPr"))
		attrs = style.Overlay(runAttrsFromRPr(st.SelectElement("w:rPr")), attrs)
		todo = append(todo, pending{
			name:     im.styleNames[id],
			parentID: wVal(st.SelectElement("w:basedOn")),
			attrs:    attrs,
		})
	}
	for len(todo) > 0 {
		var next []pending
		for _, p := range todo {
			parent := im.styleNames[p.parentID]
			if parent != "" {
				if _, ok := im.d.Styles.Lookup(parent); !ok {
					next = append(next, p)
					continue
				}
			}
			if err := im.d.Styles.Define(p.name, p.attrs, parent); err != nil {
				im.warn("style-dropped", "style %q dropped: %v", p.name, err)
			}
		}
		if len(next) == len(todo) {
			for _, p := range next {
				// Orphaned basedOn reference: keep the style, cut the link.
				if err := im.d.Styles.Define(p.name, p.attrs, ""); err != nil {
					im.warn("style-dropped", "style %q dropped: %v", p.name, err)
				} else {
					im.warn("style-parent-dropped", "style %q references missing parent %q", p.name, p.parentID)
				}
			}
			break
		}
		todo = next
	}
}

// numbering records which numbering ids render as ordered lists.
func (im *importer) numbering(raw []byte) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		return
	}
	abstractOrdered := make(map[string]bool)
	for _, abs := range tree.FindElements("//w:abstractNum") {
		id := abs.SelectAttrValue("w:abstractNumId", "")
		if lvl := abs.SelectElement("w:lvl"); lvl != nil {
			fmtVal := wVal(lvl.SelectElement("w:numFmt"))
			abstractOrdered[id] = fmtVal != "" && fmtVal != "bullet" && fmtVal != "none"
		}
	}
	for _, num := range tree.FindElements("//w:num") {
		id := num.SelectAttrValue("w:numId", "")
		abs := wVal(num.SelectElement("w:abstractNumId"))
		im.ordered[id] = abstractOrdered[abs]
	}
}

func (im *importer) relationships(raw []byte) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		return
	}
	for _, rel := range tree.FindElements("//Relationship") {
		id := rel.SelectAttrValue("Id", "")
		target := rel.SelectAttrValue("Target", "")
		if id != "" && target != "" {
			im.rels[id] = path.Join("word", path.Clean(target))
		}
	}
}

// blocks converts the children of a body or table cell.
func (im *importer) blocks(parent *etree.Element) []*doc.Block {
	var out []*doc.Block
	for _, child := range parent.ChildElements() {
		switch child.Tag {
		case "p":
			out = append(out, im.paragraph(child)...)
		case "tbl":
			if t := im.table(child); t != nil {
				out = append(out, &doc.Block{Kind: doc.BlockTable, Table: t})
			}
		case "sectPr", "tcPr", "bookmarkStart", "bookmarkEnd":
			// sectPr is handled separately, the rest carry no content
		default:
			im.warn("element-dropped", "body element <%s:%s> dropped", child.Space, child.Tag)
		}
	}
	return out
}

// paragraph converts one w:p. A page-type break inside it splits the output
// into paragraph, page break, paragraph.
func (im *importer) paragraph(p *etree.Element) []*doc.Block {
	pPr := p.SelectElement("w:pPr")
	styleName := ""
	if id := wVal(selectChild(pPr, "w:pStyle")); id != "" {
		styleName = im.styleNames[id]
		if styleName == "" {
			styleName = id
		}
		if _, ok := im.d.Styles.Lookup(styleName); !ok {
			im.warn("style-reference-dropped", "paragraph references undefined style %q", styleName)
			styleName = ""
		}
	}
	attrs := paraAttrsFromPPr(pPr)

	level, ordered, isList := 0, false, false
	if numPr := selectChild(pPr, "w:numPr"); numPr != nil {
		isList = true
		if v, err := strconv.Atoi(wVal(numPr.SelectElement("w:ilvl"))); err == nil {
			level = v
		}
		ordered = im.ordered[wVal(numPr.SelectElement("w:numId"))]
	}

	newPara := func() *doc.Paragraph {
		return &doc.Paragraph{StyleName: styleName, Attrs: attrs.Clone()}
	}
	wrap := func(para *doc.Paragraph) *doc.Block {
		if isList {
			return &doc.Block{Kind: doc.BlockListItem, List: &doc.ListItem{Level: level + 1, Ordered: ordered, Para: *para}}
		}
		return &doc.Block{Kind: doc.BlockParagraph, Para: para}
	}

	var blocks []*doc.Block
	split := false
	current := newPara()
	pageBreak := func() {
		if len(current.Runs) > 0 {
			blocks = append(blocks, wrap(current))
		}
		blocks = append(blocks, doc.NewPageBreak())
		current = newPara()
		split = true
	}
	im.runs(p, current, &pageBreak)
	// An empty trailing fragment after a page break is a split artifact,
	// but a paragraph that was empty to begin with is kept.
	if len(current.Runs) > 0 || !split {
		blocks = append(blocks, wrap(current))
	}
	return blocks
}

// runs converts the inline content of p into the current paragraph, calling
// pageBreak to split at page-type breaks.
func (im *importer) runs(p *etree.Element, para *doc.Paragraph, pageBreak *func()) {
	for _, child := range p.ChildElements() {
		switch child.Tag {
		case "r":
			im.run(child, para, pageBreak)
		case "hyperlink", "smartTag":
			im.runs(child, para, pageBreak)
		case "ins":
			im.warn("tracked-insertion-accepted", "tracked insertion included as regular text")
			im.runs(child, para, pageBreak)
		case "del":
			im.warn("tracked-deletion-dropped", "tracked deletion dropped")
		case "commentRangeStart", "commentRangeEnd":
			im.warn("comment-dropped", "comment anchor dropped")
		case "pPr", "proofErr", "bookmarkStart", "bookmarkEnd":
		default:
			im.warn("element-dropped", "paragraph element <%s:%s> dropped", child.Space, child.Tag)
		}
	}
}

func (im *importer) run(r *etree.Element, para *doc.Paragraph, pageBreak *func()) {
	attrs := runAttrsFromRPr(r.SelectElement("w:rPr"))
	for _, child := range r.ChildElements() {
		switch child.Tag {
		case "t":
			if child.Text() != "" {
				para.Runs = append(para.Runs, doc.NewTextRun(child.Text(), attrs.Clone()))
			}
		case "br":
			if child.SelectAttrValue("w:type", "") == "page" {
				(*pageBreak)()
			} else {
				para.Runs = append(para.Runs, &doc.Run{Kind: doc.RunBreak})
			}
		case "tab":
			para.Runs = append(para.Runs, doc.NewTextRun("\t", attrs.Clone()))
		case "sym":
			if glyph := symbolGlyph(child); glyph != "" {
				para.Runs = append(para.Runs, &doc.Run{
					Kind:   doc.RunSymbol,
					Symbol: &doc.Symbol{Glyph: glyph, Class: doc.ClassifySymbol(glyph)},
					Attrs:  attrs.Clone(),
				})
			}
		case "drawing", "pict":
			im.drawing(child, para, attrs)
		case "commentReference":
			im.warn("comment-dropped", "comment reference dropped")
		case "rPr", "lastRenderedPageBreak":
		default:
			im.warn("element-dropped", "run element <%s:%s> dropped", child.Space, child.Tag)
		}
	}
}

// drawing resolves an embedded picture through the relationships part.
func (im *importer) drawing(el *etree.Element, para *doc.Paragraph, attrs style.Attrs) {
	blip := el.FindElement(".//a:blip")
	if blip == nil {
		im.warn("drawing-dropped", "drawing without embedded picture dropped")
		return
	}
	relID := blip.SelectAttrValue("r:embed", "")
	target, ok := im.rels[relID]
	if !ok {
		im.warn("image-dropped", "picture relationship %q not found", relID)
		return
	}
	data, ok := im.media[target]
	if !ok {
		im.warn("image-dropped", "picture %q missing from archive", target)
		return
	}
	mime, err := imgutil.SniffMIME(data)
	if err != nil {
		im.warn("image-dropped", "picture %q is not a supported raster format", target)
		return
	}
	w, h, err := imgutil.Dimensions(data)
	if err != nil {
		im.warn("image-dropped", "picture %q cannot be decoded", target)
		return
	}
	im.imgSeq++
	name := fmt.Sprintf("image%d%s", im.imgSeq, path.Ext(target))
	im.d.Images[name] = &doc.ImageResource{Name: name, MIME: mime, Width: w, Height: h, Data: data}
	para.Runs = append(para.Runs, &doc.Run{Kind: doc.RunImage, ImageRef: name, Attrs: attrs.Clone()})
}

func (im *importer) table(tbl *etree.Element) *doc.Table {
	t := &doc.Table{}
	cols := 0
	for _, tr := range tbl.ChildElements() {
		if tr.Tag != "tr" {
			continue
		}
		var row []*doc.Cell
		for _, tc := range tr.ChildElements() {
			if tc.Tag != "tc" {
				continue
			}
			row = append(row, &doc.Cell{Blocks: im.blocks(tc)})
		}
		if len(row) > cols {
			cols = len(row)
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		im.warn("empty-table", "table without rows dropped")
		return nil
	}
	for ri, row := range t.Rows {
		for len(row) < cols {
			row = append(row, &doc.Cell{})
		}
		t.Rows[ri] = row
	}
	return t
}

// sectionProperties reads page geometry from the final w:sectPr.
func (im *importer) sectionProperties(body *etree.Element) {
	sectPr := body.SelectElement("w:sectPr")
	if sectPr == nil {
		return
	}
	if pgSz := sectPr.SelectElement("w:pgSz"); pgSz != nil {
		if w, err := strconv.ParseFloat(pgSz.SelectAttrValue("w:w", ""), 64); err == nil {
			im.d.Meta.Page.WidthPt = w / twipsPerPoint
		}
		if h, err := strconv.ParseFloat(pgSz.SelectAttrValue("w:h", ""), 64); err == nil {
			im.d.Meta.Page.HeightPt = h / twipsPerPoint
		}
	}
	if pgMar := sectPr.SelectElement("w:pgMar"); pgMar != nil {
		if m, err := strconv.ParseFloat(pgMar.SelectAttrValue("w:left", ""), 64); err == nil {
			im.d.Meta.Page.MarginPt = m / twipsPerPoint
		}
	}
}

func selectChild(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	return el.SelectElement(tag)
}

func symbolGlyph(sym *etree.Element) string {
	code := sym.SelectAttrValue("w:char", "")
	if code == "" {
		return ""
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(code, "F0"), 16, 32)
	if err != nil {
		return ""
	}
	return string(rune(n))
}
