package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"olc/common"
	"olc/doc"
	"olc/imgutil"
	"olc/style"
)

const (
	numIDBullet  = 1
	numIDOrdered = 2
)

type exporter struct {
	d        *doc.Document
	warnings []common.FidelityWarning

	styleIDs map[string]string // style name -> part style id
	imageRel map[string]string // image name -> relationship id
	imageIdx map[string]int
}

// Export writes the document as a .docx archive. Model content the format
// cannot carry degrades with a warning; only archive write failures are
// errors.
func Export(w io.Writer, d *doc.Document, log *zap.Logger) ([]common.FidelityWarning, error) {
	ex := &exporter{
		d:        d,
		styleIDs: make(map[string]string),
		imageRel: make(map[string]string),
		imageIdx: make(map[string]int),
	}
	for _, name := range d.Styles.Names() {
		ex.styleIDs[name] = slug.Make(name)
	}
	for i, name := range sortedImageNames(d.Images) {
		ex.imageRel[name] = fmt.Sprintf("rId%d", 100+i)
		ex.imageIdx[name] = i + 1
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		body func() ([]byte, error)
	}{
		{"[Content_Types].xml", ex.contentTypes},
		{"_rels/.rels", ex.packageRels},
		{"word/_rels/document.xml.rels", ex.documentRels},
		{"word/styles.xml", ex.stylesPart},
		{"word/numbering.xml", ex.numberingPart},
		{"word/document.xml", ex.documentPart},
	}
	for _, part := range parts {
		body, err := part.body()
		if err != nil {
			return ex.warnings, err
		}
		if err := writeZipPart(zw, part.name, body); err != nil {
			return ex.warnings, err
		}
	}
	for _, name := range sortedImageNames(d.Images) {
		img := d.Images[name]
		if err := writeZipPart(zw, "word/media/"+ex.mediaName(name), img.Data); err != nil {
			return ex.warnings, err
		}
	}
	if err := zw.Close(); err != nil {
		return ex.warnings, &common.ResourceError{Op: "finalize", Path: "docx archive", Err: err}
	}
	log.Debug("exported docx",
		zap.Int("blocks", len(d.Blocks)),
		zap.Int("images", len(d.Images)),
		zap.Int("warnings", len(ex.warnings)))
	return ex.warnings, nil
}

func writeZipPart(zw *zip.Writer, name string, body []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return &common.ResourceError{Op: "create", Path: name, Err: err}
	}
	if _, err := f.Write(body); err != nil {
		return &common.ResourceError{Op: "write", Path: name, Err: err}
	}
	return nil
}

func (ex *exporter) mediaName(imageName string) string {
	img := ex.d.Images[imageName]
	ext := ".png"
	switch img.MIME {
	case "image/jpeg":
		ext = ".jpeg"
	case "image/gif":
		ext = ".gif"
	}
	return fmt.Sprintf("image%d%s", ex.imageIdx[imageName], ext)
}

func newXMLDoc() *etree.Document {
	tree := etree.NewDocument()
	tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return tree
}

func (ex *exporter) contentTypes() ([]byte, error) {
	tree := newXMLDoc()
	types := tree.CreateElement("Types")
	types.CreateAttr("xmlns", nsCT)
	for ext, ct := range map[string]string{
		"rels": "application/vnd.openxmlformats-package.relationships+xml",
		"xml":  "application/xml",
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"gif":  "image/gif",
	} {
		def := types.CreateElement("Default")
		def.CreateAttr("Extension", ext)
		def.CreateAttr("ContentType", ct)
	}
	for part, ct := range map[string]string{
		"/word/document.xml":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml",
		"/word/styles.xml":    "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml",
		"/word/numbering.xml": "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml",
	} {
		ov := types.CreateElement("Override")
		ov.CreateAttr("PartName", part)
		ov.CreateAttr("ContentType", ct)
	}
	return tree.WriteToBytes()
}

func (ex *exporter) packageRels() ([]byte, error) {
	tree := newXMLDoc()
	rels := tree.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelPkg)
	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relOfficeD)
	rel.CreateAttr("Target", "word/document.xml")
	return tree.WriteToBytes()
}

func (ex *exporter) documentRels() ([]byte, error) {
	tree := newXMLDoc()
	rels := tree.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelPkg)
	add := func(id, typ, target string) {
		rel := rels.CreateElement("Relationship")
		rel.CreateAttr("Id", id)
		rel.CreateAttr("Type", typ)
		rel.CreateAttr("Target", target)
	}
	add("rId1", relStyles, "styles.xml")
	add("rId2", relNumber, "numbering.xml")
	for _, name := range sortedImageNames(ex.d.Images) {
		add(ex.imageRel[name], relImage, "media/"+ex.mediaName(name))
	}
	return tree.WriteToBytes()
}

func (ex *exporter) stylesPart() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsW)

	defAttrs := ex.d.Styles.Default()
	if ex.d.Meta.ReadingAid {
		defAttrs = style.Overlay(readingAidAttrs(), defAttrs)
	}
	docDefaults := root.CreateElement("w:docDefaults")
	rPrDefault := docDefaults.CreateElement("w:rPrDefault")
	writeRPr(rPrDefault, defAttrs)

	for _, name := range ex.d.Styles.Names() {
		named, _ := ex.d.Styles.Lookup(name)
		st := root.CreateElement("w:style")
		st.CreateAttr("w:type", "paragraph")
		st.CreateAttr("w:styleId", ex.styleIDs[name])
		st.CreateElement("w:name").CreateAttr("w:val", name)
		if named.Parent != "" {
			st.CreateElement("w:basedOn").CreateAttr("w:val", ex.styleIDs[named.Parent])
		}
		writeStylePPr(st, named.Attrs)
		writeRPr(st, named.Attrs)
	}
	return tree.WriteToBytes()
}

// readingAidAttrs is the dyslexia-friendly defaults applied when the
// document requests a reading aid.
func readingAidAttrs() style.Attrs {
	return style.Attrs{
		FontFamily:      style.String("OpenDyslexic"),
		SizePt:          style.Float(14),
		LetterSpacingPt: style.Float(0.5),
		LineSpacing:     style.Float(1.5),
	}
}

// writeStylePPr emits only the paragraph-level half of the attributes.
func writeStylePPr(parent *etree.Element, a style.Attrs) {
	if a.Alignment == nil && a.LineSpacing == nil {
		return
	}
	pPr := parent.CreateElement("w:pPr")
	if a.Alignment != nil {
		pPr.CreateElement("w:jc").CreateAttr("w:val", string(*a.Alignment))
	}
	if a.LineSpacing != nil {
		sp := pPr.CreateElement("w:spacing")
		sp.CreateAttr("w:line", strconv.Itoa(int(*a.LineSpacing*lineUnitsPerWhole)))
		sp.CreateAttr("w:lineRule", "auto")
	}
}

func (ex *exporter) numberingPart() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("w:numbering")
	root.CreateAttr("xmlns:w", nsW)

	abstract := func(id int, numFmt, lvlText string) {
		abs := root.CreateElement("w:abstractNum")
		abs.CreateAttr("w:abstractNumId", strconv.Itoa(id))
		for lvl := 0; lvl < 9; lvl++ {
			l := abs.CreateElement("w:lvl")
			l.CreateAttr("w:ilvl", strconv.Itoa(lvl))
			l.CreateElement("w:start").CreateAttr("w:val", "1")
			l.CreateElement("w:numFmt").CreateAttr("w:val", numFmt)
			text := lvlText
			if numFmt != "bullet" {
				text = fmt.Sprintf("%%%d.", lvl+1)
			}
			l.CreateElement("w:lvlText").CreateAttr("w:val", text)
			ind := l.CreateElement("w:pPr").CreateElement("w:ind")
			ind.CreateAttr("w:left", strconv.Itoa((lvl+1)*720))
			ind.CreateAttr("w:hanging", "360")
		}
	}
	abstract(0, "bullet", "•")
	abstract(1, "decimal", "")

	num := func(numID, absID int) {
		n := root.CreateElement("w:num")
		n.CreateAttr("w:numId", strconv.Itoa(numID))
		n.CreateElement("w:abstractNumId").CreateAttr("w:val", strconv.Itoa(absID))
	}
	num(numIDBullet, 0)
	num(numIDOrdered, 1)
	return tree.WriteToBytes()
}

func (ex *exporter) documentPart() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	root.CreateAttr("xmlns:wp", nsWP)
	root.CreateAttr("xmlns:a", nsA)
	root.CreateAttr("xmlns:pic", nsPic)
	body := root.CreateElement("w:body")

	ex.writeBlocks(body, ex.d.Blocks)
	ex.sectionProperties(body)
	return tree.WriteToBytes()
}

func (ex *exporter) writeBlocks(parent *etree.Element, blocks []*doc.Block) {
	for i, b := range blocks {
		switch b.Kind {
		case doc.BlockParagraph:
			ex.writeParagraph(parent, b.Para, 0, 0)
		case doc.BlockListItem:
			numID := numIDBullet
			if b.List.Ordered {
				numID = numIDOrdered
			}
			ex.writeParagraph(parent, &b.List.Para, numID, b.List.Level-1)
		case doc.BlockTable:
			ex.writeTable(parent, b.Table)
		case doc.BlockPageBreak:
			p := parent.CreateElement("w:p")
			r := p.CreateElement("w:r")
			r.CreateElement("w:br").CreateAttr("w:type", "page")
		default:
			ex.warnings = append(ex.warnings, common.Warn("block-dropped",
				fmt.Sprintf("blocks[%d]", i), "block kind %q dropped", b.Kind))
		}
	}
}

func (ex *exporter) writeParagraph(parent *etree.Element, p *doc.Paragraph, numID, ilvl int) {
	wp := parent.CreateElement("w:p")
	writePPr(wp, ex.styleIDs[p.StyleName], numID, ilvl, p.Attrs)
	for _, r := range p.Runs {
		ex.writeRun(wp, r)
	}
}

func (ex *exporter) writeRun(wp *etree.Element, r *doc.Run) {
	wr := wp.CreateElement("w:r")
	writeRPr(wr, r.Attrs)
	switch r.Kind {
	case doc.RunText:
		t := wr.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(r.Text)
	case doc.RunSymbol:
		// Symbols travel as plain text so any reader renders them; the
		// palette class is a native-format concept.
		if r.Symbol != nil {
			t := wr.CreateElement("w:t")
			t.CreateAttr("xml:space", "preserve")
			t.SetText(r.Symbol.Glyph)
		}
	case doc.RunBreak:
		wr.CreateElement("w:br")
	case doc.RunImage:
		ex.writeImage(wr, r)
	}
}

func (ex *exporter) writeImage(wr *etree.Element, r *doc.Run) {
	img, ok := ex.d.Images[r.ImageRef]
	if !ok {
		ex.warnings = append(ex.warnings, common.Warn("missing-image", "",
			"image %q has no resource and was skipped", r.ImageRef))
		return
	}
	wPt, hPt := imgutil.DisplaySize(img.Width, img.Height)
	cx, cy := int(wPt*emusPerPoint), int(hPt*emusPerPoint)
	idx := ex.imageIdx[r.ImageRef]

	drawing := wr.CreateElement("w:drawing")
	inline := drawing.CreateElement("wp:inline")
	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", strconv.Itoa(cx))
	extent.CreateAttr("cy", strconv.Itoa(cy))
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", strconv.Itoa(idx))
	docPr.CreateAttr("name", img.Name)
	graphic := inline.CreateElement("a:graphic")
	gd := graphic.CreateElement("a:graphicData")
	gd.CreateAttr("uri", nsPic)
	pic := gd.CreateElement("pic:pic")
	nv := pic.CreateElement("pic:nvPicPr")
	cNvPr := nv.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(idx))
	cNvPr.CreateAttr("name", img.Name)
	nv.CreateElement("pic:cNvPicPr")
	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", ex.imageRel[r.ImageRef])
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")
	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.Itoa(cx))
	ext.CreateAttr("cy", strconv.Itoa(cy))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}

func (ex *exporter) writeTable(parent *etree.Element, t *doc.Table) {
	tbl := parent.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	borders := tblPr.CreateElement("w:tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b := borders.CreateElement("w:" + side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
	}
	grid := tbl.CreateElement("w:tblGrid")
	for i := 0; i < t.Cols(); i++ {
		grid.CreateElement("w:gridCol")
	}
	for _, row := range t.Rows {
		tr := tbl.CreateElement("w:tr")
		for _, cell := range row {
			tc := tr.CreateElement("w:tc")
			tc.CreateElement("w:tcPr")
			if len(cell.Blocks) == 0 {
				// A cell must contain at least one paragraph.
				tc.CreateElement("w:p")
				continue
			}
			ex.writeBlocks(tc, cell.Blocks)
		}
	}
}

func (ex *exporter) sectionProperties(body *etree.Element) {
	sectPr := body.CreateElement("w:sectPr")
	pgSz := sectPr.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", strconv.Itoa(int(ex.d.Meta.Page.WidthPt*twipsPerPoint+0.5)))
	pgSz.CreateAttr("w:h", strconv.Itoa(int(ex.d.Meta.Page.HeightPt*twipsPerPoint+0.5)))
	pgMar := sectPr.CreateElement("w:pgMar")
	margin := strconv.Itoa(int(ex.d.Meta.Page.MarginPt*twipsPerPoint + 0.5))
	for _, side := range []string{"top", "right", "bottom", "left"} {
		pgMar.CreateAttr("w:"+side, margin)
	}
}

func sortedImageNames(images map[string]*doc.ImageResource) []string {
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}
