package html

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"olc/common"
	"olc/doc"
	"olc/style"
)

// Export writes the document as a standalone HTML page. All formatting is
// inlined on the elements themselves: named styles are flattened through
// the registry before writing, so the page needs no stylesheet and no
// format-specific style vocabulary survives in the output.
func Export(w io.Writer, d *doc.Document, log *zap.Logger) ([]common.FidelityWarning, error) {
	var warnings []common.FidelityWarning

	tree := etree.NewDocument()
	tree.CreateDirective("DOCTYPE html")
	root := tree.CreateElement("html")
	if d.Meta.Lang != "" {
		root.CreateAttr("lang", d.Meta.Lang)
	}
	head := root.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	head.CreateElement("title").SetText(d.Meta.Application)
	body := root.CreateElement("body")
	if d.Meta.ReadingAid {
		body.CreateAttr("style", inlineStyle(readingAidAttrs()))
	}

	ex := &exporter{d: d, body: body}
	ex.blocks(body, d.Blocks)
	warnings = append(warnings, ex.warnings...)

	// No pretty-printing: indentation inside mixed content would change
	// the text the page renders.
	if _, err := tree.WriteTo(w); err != nil {
		return warnings, &common.ResourceError{Op: "write", Path: "html output", Err: err}
	}
	log.Debug("exported html", zap.Int("blocks", len(d.Blocks)), zap.Int("warnings", len(warnings)))
	return warnings, nil
}

// readingAidAttrs is the dyslexia-friendly presentation applied when the
// document asks for a reading aid: a large OpenDyslexic face with generous
// spacing.
func readingAidAttrs() style.Attrs {
	return style.Attrs{
		FontFamily:      style.String("OpenDyslexic"),
		SizePt:          style.Float(14),
		LetterSpacingPt: style.Float(0.5),
		LineSpacing:     style.Float(1.5),
	}
}

type exporter struct {
	d        *doc.Document
	body     *etree.Element
	warnings []common.FidelityWarning
}

func (ex *exporter) blocks(parent *etree.Element, blocks []*doc.Block) {
	var listParent *etree.Element
	var listOrdered bool
	for _, b := range blocks {
		if b.Kind != doc.BlockListItem {
			listParent = nil
		}
		switch b.Kind {
		case doc.BlockParagraph:
			ex.paragraph(parent, b.Para)
		case doc.BlockListItem:
			tag := "ul"
			if b.List.Ordered {
				tag = "ol"
			}
			if listParent == nil || listOrdered != b.List.Ordered {
				listParent = parent.CreateElement(tag)
				listOrdered = b.List.Ordered
			}
			li := listParent.CreateElement("li")
			ex.inline(li, &b.List.Para)
			ex.applyParagraphStyle(li, &b.List.Para)
		case doc.BlockTable:
			ex.table(parent, b.Table)
		case doc.BlockPageBreak:
			hr := parent.CreateElement("hr")
			hr.CreateAttr("style", "page-break-after:always")
		}
	}
}

func (ex *exporter) paragraph(parent *etree.Element, p *doc.Paragraph) {
	var el *etree.Element
	if level, ok := headingLevel(p.StyleName); ok {
		el = parent.CreateElement(fmt.Sprintf("h%d", level))
	} else {
		el = parent.CreateElement("p")
	}
	ex.applyParagraphStyle(el, p)
	ex.inline(el, p)
}

// applyParagraphStyle flattens the named style and local attributes into
// one inline declaration.
func (ex *exporter) applyParagraphStyle(el *etree.Element, p *doc.Paragraph) {
	flat := style.Overlay(p.Attrs, ex.d.Styles.Flatten(p.StyleName))
	if css := inlineStyle(flat); css != "" {
		el.CreateAttr("style", css)
	}
}

func (ex *exporter) inline(el *etree.Element, p *doc.Paragraph) {
	for _, r := range p.Runs {
		switch r.Kind {
		case doc.RunText, doc.RunSymbol:
			text := r.Text
			if r.Kind == doc.RunSymbol && r.Symbol != nil {
				text = r.Symbol.Glyph
			}
			if r.Attrs.IsZero() {
				el.CreateText(text)
				continue
			}
			span := el.CreateElement("span")
			span.CreateAttr("style", inlineStyle(r.Attrs))
			span.SetText(text)
		case doc.RunBreak:
			el.CreateElement("br")
		case doc.RunImage:
			ex.image(el, r)
		}
	}
}

func (ex *exporter) image(el *etree.Element, r *doc.Run) {
	res, ok := ex.d.Images[r.ImageRef]
	if !ok {
		ex.warnings = append(ex.warnings, common.Warn("missing-image", "",
			"image %q has no resource and was skipped", r.ImageRef))
		return
	}
	img := el.CreateElement("img")
	img.CreateAttr("src", fmt.Sprintf("data:%s;base64,%s", res.MIME, base64.StdEncoding.EncodeToString(res.Data)))
	img.CreateAttr("alt", res.Name)
	if res.Width > 0 {
		img.CreateAttr("width", fmt.Sprintf("%d", res.Width))
	}
	if res.Height > 0 {
		img.CreateAttr("height", fmt.Sprintf("%d", res.Height))
	}
}

func headingLevel(styleName string) (int, bool) {
	var level int
	if _, err := fmt.Sscanf(styleName, "Heading %d", &level); err != nil || level < 1 || level > 6 {
		return 0, false
	}
	return level, true
}
