package odt

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"olc/common"
	"olc/doc"
	"olc/imgutil"
	"olc/style"
)

const (
	listStyleBullet = "LB"
	listStyleNumber = "LN"
	pageBreakStyle  = "PB"
)

type exporter struct {
	d        *doc.Document
	warnings []common.FidelityWarning

	autoStyles *etree.Element
	autoSeq    int
	imageIdx   map[string]int
}

// Export writes the document as an .odt archive. The mimetype entry is
// stored uncompressed as the first file, which is how consumers identify
// the package.
func Export(w io.Writer, d *doc.Document, log *zap.Logger) ([]common.FidelityWarning, error) {
	ex := &exporter{d: d, imageIdx: make(map[string]int)}
	for i, name := range sortedImageNames(d.Images) {
		ex.imageIdx[name] = i + 1
	}

	zw := zip.NewWriter(w)
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, &common.ResourceError{Op: "create", Path: "mimetype", Err: err}
	}
	if _, err := io.WriteString(mt, mimetypeODT); err != nil {
		return nil, &common.ResourceError{Op: "write", Path: "mimetype", Err: err}
	}

	parts := []struct {
		name string
		body func() ([]byte, error)
	}{
		{"META-INF/manifest.xml", ex.manifest},
		{"styles.xml", ex.stylesPart},
		{"content.xml", ex.contentPart},
	}
	for _, part := range parts {
		body, err := part.body()
		if err != nil {
			return ex.warnings, err
		}
		f, err := zw.Create(part.name)
		if err != nil {
			return ex.warnings, &common.ResourceError{Op: "create", Path: part.name, Err: err}
		}
		if _, err := f.Write(body); err != nil {
			return ex.warnings, &common.ResourceError{Op: "write", Path: part.name, Err: err}
		}
	}
	for _, name := range sortedImageNames(d.Images) {
		img := d.Images[name]
		f, err := zw.Create("Pictures/" + ex.pictureName(name))
		if err != nil {
			return ex.warnings, &common.ResourceError{Op: "create", Path: name, Err: err}
		}
		if _, err := f.Write(img.Data); err != nil {
			return ex.warnings, &common.ResourceError{Op: "write", Path: name, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return ex.warnings, &common.ResourceError{Op: "finalize", Path: "odt archive", Err: err}
	}
	log.Debug("exported odt",
		zap.Int("blocks", len(d.Blocks)),
		zap.Int("images", len(d.Images)),
		zap.Int("warnings", len(ex.warnings)))
	return ex.warnings, nil
}

func (ex *exporter) pictureName(imageName string) string {
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
	tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return tree
}

func (ex *exporter) manifest() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("manifest:manifest")
	root.CreateAttr("xmlns:manifest", nsManifest)
	root.CreateAttr("manifest:version", "1.2")
	add := func(full, media string) {
		e := root.CreateElement("manifest:file-entry")
		e.CreateAttr("manifest:full-path", full)
		e.CreateAttr("manifest:media-type", media)
	}
	add("/", mimetypeODT)
	add("content.xml", "text/xml")
	add("styles.xml", "text/xml")
	for _, name := range sortedImageNames(ex.d.Images) {
		add("Pictures/"+ex.pictureName(name), ex.d.Images[name].MIME)
	}
	return tree.WriteToBytes()
}

func (ex *exporter) stylesPart() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("office:document-styles")
	ex.namespaces(root)
	styles := root.CreateElement("office:styles")

	defAttrs := ex.d.Styles.Default()
	if ex.d.Meta.ReadingAid {
		defAttrs = style.Overlay(readingAidAttrs(), defAttrs)
	}
	if !defAttrs.IsZero() {
		def := styles.CreateElement("style:default-style")
		def.CreateAttr("style:family", "paragraph")
		writeProps(def, defAttrs, false)
	}

	for _, name := range ex.d.Styles.Names() {
		named, _ := ex.d.Styles.Lookup(name)
		st := styles.CreateElement("style:style")
		st.CreateAttr("style:name", name)
		st.CreateAttr("style:display-name", name)
		st.CreateAttr("style:family", "paragraph")
		if named.Parent != "" {
			st.CreateAttr("style:parent-style-name", named.Parent)
		}
		writeProps(st, named.Attrs, false)
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

func (ex *exporter) namespaces(root *etree.Element) {
	root.CreateAttr("xmlns:office", nsOffice)
	root.CreateAttr("xmlns:text", nsText)
	root.CreateAttr("xmlns:style", nsStyle)
	root.CreateAttr("xmlns:fo", nsFo)
	root.CreateAttr("xmlns:table", nsTable)
	root.CreateAttr("xmlns:draw", nsDraw)
	root.CreateAttr("xmlns:xlink", nsXlink)
	root.CreateAttr("xmlns:svg", nsSvg)
	root.CreateAttr("office:version", "1.2")
}

func (ex *exporter) contentPart() ([]byte, error) {
	tree := newXMLDoc()
	root := tree.CreateElement("office:document-content")
	ex.namespaces(root)
	ex.autoStyles = root.CreateElement("office:automatic-styles")
	ex.listStyles()
	ex.pageBreakParaStyle()
	body := root.CreateElement("office:body")
	text := body.CreateElement("office:text")
	ex.writeBlocks(text, ex.d.Blocks, 0)
	return tree.WriteToBytes()
}

func (ex *exporter) listStyles() {
	bullet := ex.autoStyles.CreateElement("text:list-style")
	bullet.CreateAttr("style:name", listStyleBullet)
	for lvl := 1; lvl <= 9; lvl++ {
		l := bullet.CreateElement("text:list-level-style-bullet")
		l.CreateAttr("text:level", strconv.Itoa(lvl))
		l.CreateAttr("text:bullet-char", "•")
	}
	number := ex.autoStyles.CreateElement("text:list-style")
	number.CreateAttr("style:name", listStyleNumber)
	for lvl := 1; lvl <= 9; lvl++ {
		l := number.CreateElement("text:list-level-style-number")
		l.CreateAttr("text:level", strconv.Itoa(lvl))
		l.CreateAttr("style:num-format", "1")
		l.CreateAttr("style:num-suffix", ".")
	}
}

func (ex *exporter) pageBreakParaStyle() {
	st := ex.autoStyles.CreateElement("style:style")
	st.CreateAttr("style:name", pageBreakStyle)
	st.CreateAttr("style:family", "paragraph")
	writeProps(st, style.Attrs{}, true)
}

// autoStyle registers an anonymous style for local attributes and returns
// its name.
func (ex *exporter) autoStyle(family string, a style.Attrs, parent string) string {
	ex.autoSeq++
	prefix := "T"
	if family == "paragraph" {
		prefix = "P"
	}
	name := fmt.Sprintf("%s%d", prefix, ex.autoSeq)
	st := ex.autoStyles.CreateElement("style:style")
	st.CreateAttr("style:name", name)
	st.CreateAttr("style:family", family)
	if parent != "" {
		st.CreateAttr("style:parent-style-name", parent)
	}
	writeProps(st, a, false)
	return name
}

func (ex *exporter) writeBlocks(parent *etree.Element, blocks []*doc.Block, listLevel int) {
	var listEl *etree.Element
	var listOrdered bool
	for i, b := range blocks {
		if b.Kind != doc.BlockListItem {
			listEl = nil
		}
		switch b.Kind {
		case doc.BlockParagraph:
			ex.writeParagraph(parent, b.Para, "")
		case doc.BlockListItem:
			if listEl == nil || listOrdered != b.List.Ordered {
				listEl = parent.CreateElement("text:list")
				styleName := listStyleBullet
				if b.List.Ordered {
					styleName = listStyleNumber
				}
				listEl.CreateAttr("text:style-name", styleName)
				listOrdered = b.List.Ordered
			}
			item := listEl.CreateElement("text:list-item")
			container := item
			// Deeper levels nest additional text:list wrappers.
			for lvl := listLevel + 1; lvl < b.List.Level; lvl++ {
				inner := container.CreateElement("text:list")
				inner.CreateAttr("text:style-name", listEl.SelectAttrValue("text:style-name", listStyleBullet))
				container = inner.CreateElement("text:list-item")
			}
			ex.writeParagraph(container, &b.List.Para, "")
		case doc.BlockTable:
			ex.writeTable(parent, b.Table)
		case doc.BlockPageBreak:
			p := parent.CreateElement("text:p")
			p.CreateAttr("text:style-name", pageBreakStyle)
		default:
			ex.warnings = append(ex.warnings, common.Warn("block-dropped",
				fmt.Sprintf("blocks[%d]", i), "block kind %q dropped", b.Kind))
		}
	}
}

func (ex *exporter) writeParagraph(parent *etree.Element, p *doc.Paragraph, forcedStyle string) {
	el := parent.CreateElement("text:p")
	switch {
	case forcedStyle != "":
		el.CreateAttr("text:style-name", forcedStyle)
	case !p.Attrs.IsZero():
		el.CreateAttr("text:style-name", ex.autoStyle("paragraph", p.Attrs, p.StyleName))
	case p.StyleName != "":
		el.CreateAttr("text:style-name", p.StyleName)
	}
	for _, r := range p.Runs {
		ex.writeRun(el, r)
	}
}

func (ex *exporter) writeRun(el *etree.Element, r *doc.Run) {
	switch r.Kind {
	case doc.RunText, doc.RunSymbol:
		text := r.Text
		if r.Kind == doc.RunSymbol && r.Symbol != nil {
			text = r.Symbol.Glyph
		}
		if r.Attrs.IsZero() {
			el.CreateText(text)
			return
		}
		span := el.CreateElement("text:span")
		span.CreateAttr("text:style-name", ex.autoStyle("text", r.Attrs, ""))
		span.SetText(text)
	case doc.RunBreak:
		el.CreateElement("text:line-break")
	case doc.RunImage:
		ex.writeImage(el, r)
	}
}

func (ex *exporter) writeImage(el *etree.Element, r *doc.Run) {
	img, ok := ex.d.Images[r.ImageRef]
	if !ok {
		ex.warnings = append(ex.warnings, common.Warn("missing-image", "",
			"image %q has no resource and was skipped", r.ImageRef))
		return
	}
	wPt, hPt := imgutil.DisplaySize(img.Width, img.Height)
	frame := el.CreateElement("draw:frame")
	frame.CreateAttr("draw:name", img.Name)
	frame.CreateAttr("text:anchor-type", "as-char")
	frame.CreateAttr("svg:width", trimFloat(wPt)+"pt")
	frame.CreateAttr("svg:height", trimFloat(hPt)+"pt")
	image := frame.CreateElement("draw:image")
	image.CreateAttr("xlink:href", "Pictures/"+ex.pictureName(r.ImageRef))
	image.CreateAttr("xlink:type", "simple")
	image.CreateAttr("xlink:show", "embed")
}

func (ex *exporter) writeTable(parent *etree.Element, t *doc.Table) {
	tbl := parent.CreateElement("table:table")
	col := tbl.CreateElement("table:table-column")
	col.CreateAttr("table:number-columns-repeated", strconv.Itoa(t.Cols()))
	for _, row := range t.Rows {
		tr := tbl.CreateElement("table:table-row")
		for _, cell := range row {
			tc := tr.CreateElement("table:table-cell")
			if len(cell.Blocks) == 0 {
				tc.CreateElement("text:p")
				continue
			}
			ex.writeBlocks(tc, cell.Blocks, 0)
		}
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
