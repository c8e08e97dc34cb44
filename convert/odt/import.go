package odt

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
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

	auto     map[string]*etree.Element // automatic style name -> style:style
	listAuto map[string]bool           // automatic list style name -> ordered
	named    map[string]string         // internal style name -> display name
	pictures map[string][]byte
	imgSeq   int
}

// Import parses an .odt archive into a document. Tracked changes and
// annotations degrade with warnings; only a broken archive or missing
// content part fails.
func Import(data []byte, log *zap.Logger) (*doc.Document, []common.FidelityWarning, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, common.Unreadable(common.FormatOdt, err, "not a zip archive")
	}

	im := &importer{
		d:        doc.New(),
		log:      log,
		auto:     make(map[string]*etree.Element),
		listAuto: make(map[string]bool),
		named:    make(map[string]string),
		pictures: make(map[string][]byte),
	}

	var contentXML, stylesXML []byte
	for _, f := range zr.File {
		switch {
		case f.Name == "content.xml":
			if contentXML, err = readZipFile(f); err != nil {
				return nil, nil, common.Unreadable(common.FormatOdt, err, "unable to read content part")
			}
		case f.Name == "styles.xml":
			stylesXML, _ = readZipFile(f)
		case strings.HasPrefix(f.Name, "Pictures/"):
			if raw, err := readZipFile(f); err == nil {
				im.pictures[f.Name] = raw
			}
		}
	}
	if contentXML == nil {
		return nil, nil, common.Unreadable(common.FormatOdt, nil, "archive has no content.xml")
	}

	if stylesXML != nil {
		im.namedStyles(stylesXML)
	}

	content := etree.NewDocument()
	if err := content.ReadFromBytes(contentXML); err != nil {
		return nil, nil, common.Unreadable(common.FormatOdt, err, "content part is not valid xml")
	}
	im.automaticStyles(content)

	body := content.FindElement("//office:body/office:text")
	if body == nil {
		return nil, nil, common.Unreadable(common.FormatOdt, nil, "content part has no text body")
	}
	im.d.Blocks = im.blocks(body, 0)
	log.Debug("imported odt",
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

// namedStyles loads the reusable paragraph styles from styles.xml into the
// registry under their display names.
func (im *importer) namedStyles(raw []byte) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(raw); err != nil {
		im.log.Warn("unable to parse styles part", zap.Error(err))
		return
	}
	if def := tree.FindElement("//office:styles/style:default-style[@style:family='paragraph']"); def != nil {
		im.d.Styles.SetDefault(attrsFromProps(def))
	}

	type pending struct {
		name, parent string
		attrs        style.Attrs
	}
	var todo []pending
	for _, st := range tree.FindElements("//office:styles/style:style") {
		if st.SelectAttrValue("style:family", "") != "paragraph" {
			continue
		}
		name := st.SelectAttrValue("style:name", "")
		if name == "" {
			continue
		}
		display := st.SelectAttrValue("style:display-name", "")
		if display == "" {
			display = name
		}
		im.named[name] = display
		todo = append(todo, pending{
			name:   name,
			parent: st.SelectAttrValue("style:parent-style-name", ""),
			attrs:  attrsFromProps(st),
		})
	}
	for len(todo) > 0 {
		var next []pending
		for _, p := range todo {
			parent := im.named[p.parent]
			if p.parent != "" && parent == "" {
				parent = p.parent
			}
			if parent != "" {
				if _, ok := im.d.Styles.Lookup(parent); !ok {
					next = append(next, p)
					continue
				}
			}
			if err := im.d.Styles.Define(im.named[p.name], p.attrs, parent); err != nil {
				im.warn("style-dropped", "style %q dropped: %v", im.named[p.name], err)
			}
		}
		if len(next) == len(todo) {
			for _, p := range next {
				if err := im.d.Styles.Define(im.named[p.name], p.attrs, ""); err != nil {
					im.warn("style-dropped", "style %q dropped: %v", im.named[p.name], err)
				} else {
					im.warn("style-parent-dropped", "style %q references missing parent %q", im.named[p.name], p.parent)
				}
			}
			break
		}
		todo = next
	}
}

// automaticStyles indexes content-local styles. They are anonymous
// formatting, not reusable styles, so they flatten into attributes instead
// of entering the registry.
func (im *importer) automaticStyles(content *etree.Document) {
	for _, st := range content.FindElements("//office:automatic-styles/style:style") {
		if name := st.SelectAttrValue("style:name", ""); name != "" {
			im.auto[name] = st
		}
	}
	for _, ls := range content.FindElements("//office:automatic-styles/text:list-style") {
		name := ls.SelectAttrValue("style:name", "")
		if name == "" {
			continue
		}
		ordered := false
		for _, child := range ls.ChildElements() {
			if child.Tag == "list-level-style-number" {
				ordered = true
				break
			}
		}
		im.listAuto[name] = ordered
	}
}

// resolveParaStyle splits a text:style-name reference into a registry style
// name, local attributes and a leading page break flag.
func (im *importer) resolveParaStyle(ref string) (string, style.Attrs, bool) {
	if ref == "" {
		return "", style.Attrs{}, false
	}
	if st, ok := im.auto[ref]; ok {
		attrs := attrsFromProps(st)
		parent := st.SelectAttrValue("style:parent-style-name", "")
		name := im.named[parent]
		if name == "" {
			name = parent
		}
		if name != "" {
			if _, ok := im.d.Styles.Lookup(name); !ok {
				name = ""
			}
		}
		return name, attrs, hasPageBreakBefore(st)
	}
	name := im.named[ref]
	if name == "" {
		name = ref
	}
	if _, ok := im.d.Styles.Lookup(name); !ok {
		im.warn("style-reference-dropped", "paragraph references undefined style %q", name)
		return "", style.Attrs{}, false
	}
	return name, style.Attrs{}, false
}

func (im *importer) resolveTextStyle(ref string) style.Attrs {
	if st, ok := im.auto[ref]; ok {
		return attrsFromProps(st)
	}
	return style.Attrs{}
}

// blocks converts children of office:text, a list or a table cell.
// listLevel is zero outside lists.
func (im *importer) blocks(parent *etree.Element, listLevel int) []*doc.Block {
	var out []*doc.Block
	for _, child := range parent.ChildElements() {
		switch child.Tag {
		case "p", "h":
			out = append(out, im.paragraph(child)...)
		case "list":
			out = append(out, im.list(child, listLevel)...)
		case "table":
			if t := im.table(child); t != nil {
				out = append(out, &doc.Block{Kind: doc.BlockTable, Table: t})
			}
		case "tracked-changes":
			im.warn("tracked-changes-dropped", "tracked change history dropped")
		case "sequence-decls", "forms":
		default:
			im.warn("element-dropped", "body element <%s:%s> dropped", child.Space, child.Tag)
		}
	}
	return out
}

func (im *importer) list(listEl *etree.Element, level int) []*doc.Block {
	ordered := im.listAuto[listEl.SelectAttrValue("text:style-name", "")]
	var out []*doc.Block
	for _, item := range listEl.ChildElements() {
		if item.Tag != "list-item" && item.Tag != "list-header" {
			continue
		}
		for _, b := range im.blocks(item, level+1) {
			if b.Kind == doc.BlockParagraph {
				b = &doc.Block{Kind: doc.BlockListItem, List: &doc.ListItem{
					Level:   level + 1,
					Ordered: ordered,
					Para:    *b.Para,
				}}
			}
			out = append(out, b)
		}
	}
	return out
}

// paragraph converts one text:p or text:h. A style with break-before
// produces a page break block ahead of it; an empty such paragraph is the
// break alone.
func (im *importer) paragraph(p *etree.Element) []*doc.Block {
	styleName, attrs, breakBefore := im.resolveParaStyle(p.SelectAttrValue("text:style-name", ""))
	para := &doc.Paragraph{StyleName: styleName, Attrs: attrs}
	im.inline(p, para, style.Attrs{})

	var out []*doc.Block
	if breakBefore {
		out = append(out, doc.NewPageBreak())
		if len(para.Runs) == 0 && styleName == "" {
			return out
		}
	}
	out = append(out, &doc.Block{Kind: doc.BlockParagraph, Para: para})
	return out
}

func (im *importer) inline(el *etree.Element, para *doc.Paragraph, inherited style.Attrs) {
	for _, tok := range el.Child {
		switch node := tok.(type) {
		case *etree.CharData:
			if node.Data != "" {
				para.Runs = append(para.Runs, doc.NewTextRun(node.Data, inherited.Clone()))
			}
		case *etree.Element:
			switch node.Tag {
			case "span":
				local := im.resolveTextStyle(node.SelectAttrValue("text:style-name", ""))
				im.inline(node, para, style.Overlay(local, inherited))
			case "s":
				count := atoiDefault(node.SelectAttrValue("text:c", "1"))
				if count < 1 {
					count = 1
				}
				para.Runs = append(para.Runs, doc.NewTextRun(strings.Repeat(" ", count), inherited.Clone()))
			case "tab":
				para.Runs = append(para.Runs, doc.NewTextRun("\t", inherited.Clone()))
			case "line-break":
				para.Runs = append(para.Runs, &doc.Run{Kind: doc.RunBreak})
			case "frame":
				im.frame(node, para, inherited)
			case "a":
				im.inline(node, para, inherited)
			case "annotation":
				im.warn("annotation-dropped", "annotation dropped")
			case "change-start", "change-end", "change":
				im.warn("tracked-changes-dropped", "tracked change marker dropped")
			case "soft-page-break", "bookmark", "bookmark-start", "bookmark-end":
			default:
				im.warn("element-dropped", "inline element <%s:%s> dropped", node.Space, node.Tag)
			}
		}
	}
}

func (im *importer) frame(frame *etree.Element, para *doc.Paragraph, inherited style.Attrs) {
	img := frame.SelectElement("draw:image")
	if img == nil {
		im.warn("frame-dropped", "frame without image dropped")
		return
	}
	href := img.SelectAttrValue("xlink:href", "")
	data, ok := im.pictures[path.Clean(href)]
	if !ok {
		im.warn("image-dropped", "picture %q missing from archive", href)
		return
	}
	mime, err := imgutil.SniffMIME(data)
	if err != nil {
		im.warn("image-dropped", "picture %q is not a supported raster format", href)
		return
	}
	w, h, err := imgutil.Dimensions(data)
	if err != nil {
		im.warn("image-dropped", "picture %q cannot be decoded", href)
		return
	}
	im.imgSeq++
	name := fmt.Sprintf("image%d%s", im.imgSeq, path.Ext(href))
	im.d.Images[name] = &doc.ImageResource{Name: name, MIME: mime, Width: w, Height: h, Data: data}
	para.Runs = append(para.Runs, &doc.Run{Kind: doc.RunImage, ImageRef: name, Attrs: inherited.Clone()})
}

func (im *importer) table(tbl *etree.Element) *doc.Table {
	t := &doc.Table{}
	cols := 0
	for _, tr := range tbl.ChildElements() {
		if tr.Tag != "table-row" {
			continue
		}
		var row []*doc.Cell
		for _, tc := range tr.ChildElements() {
			if tc.Tag != "table-cell" {
				continue
			}
			row = append(row, &doc.Cell{Blocks: im.blocks(tc, 0)})
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
