package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"olc/common"
	"olc/doc"
	"olc/style"
)

func logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildArchive assembles a minimal .docx in memory from part name/content
// pairs.
func buildArchive(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func minimalDocument(body string) map[string]string {
	return map[string]string{
		"word/document.xml": `<?xml version="1.0"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:body>` + body + `</w:body></w:document>`,
	}
}

func TestImportRejectsNonZip(t *testing.T) {
	_, _, err := Import([]byte("this is not a zip archive"), logger(t))
	var ee *common.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestImportRejectsMissingDocumentPart(t *testing.T) {
	data := buildArchive(t, map[string]string{"word/other.xml": "<x/>"})
	_, _, err := Import(data, logger(t))
	var ee *common.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestImportTextAndFormatting(t *testing.T) {
	data := buildArchive(t, minimalDocument(
		`<w:p><w:r><w:t>plain </w:t></w:r>`+
			`<w:r><w:rPr><w:b/><w:color w:val="FF0000"/><w:sz w:val="28"/></w:rPr><w:t>loud</w:t></w:r></w:p>`))
	d, warnings, err := Import(data, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if got := d.PlainText(0, 1); got != "plain loud" {
		t.Fatalf("plain text: %q", got)
	}
	r := d.Blocks[0].Paragraph().Runs[1]
	if r.Attrs.Bold == nil || !*r.Attrs.Bold {
		t.Fatal("bold lost")
	}
	if r.Attrs.Color == nil || *r.Attrs.Color != "#ff0000" {
		t.Fatalf("color lost: %+v", r.Attrs)
	}
	if r.Attrs.SizePt == nil || *r.Attrs.SizePt != 14 {
		t.Fatalf("size lost: %+v", r.Attrs)
	}
}

func TestImportHighlightPalette(t *testing.T) {
	data := buildArchive(t, minimalDocument(
		`<w:p><w:r><w:rPr><w:highlight w:val="yellow"/></w:rPr><w:t>marked</w:t></w:r></w:p>`))
	d, _, err := Import(data, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	r := d.Blocks[0].Paragraph().Runs[0]
	if r.Attrs.Background == nil || *r.Attrs.Background != "#ffff00" {
		t.Fatalf("highlight not mapped: %+v", r.Attrs)
	}
}

func TestImportTrackedChanges(t *testing.T) {
	data := buildArchive(t, minimalDocument(
		`<w:p>`+
			`<w:ins><w:r><w:t>added</w:t></w:r></w:ins>`+
			`<w:del><w:r><w:delText>removed</w:delText></w:r></w:del>`+
			`</w:p>`))
	d, warnings, err := Import(data, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.PlainText(0, 1); got != "added" {
		t.Fatalf("expected insertion kept and deletion dropped, got %q", got)
	}
	codes := make(map[string]bool)
	for _, w := range warnings {
		codes[w.Code] = true
	}
	if !codes["tracked-insertion-accepted"] || !codes["tracked-deletion-dropped"] {
		t.Fatalf("expected tracked change warnings, got %v", warnings)
	}
}

func TestImportPageBreakSplitsParagraph(t *testing.T) {
	data := buildArchive(t, minimalDocument(
		`<w:p><w:r><w:t>before</w:t></w:r><w:r><w:br w:type="page"/></w:r><w:r><w:t>after</w:t></w:r></w:p>`))
	d, _, err := Import(data, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(d.Blocks))
	}
	if d.Blocks[1].Kind != doc.BlockPageBreak {
		t.Fatalf("expected page break in the middle, got %q", d.Blocks[1].Kind)
	}
}

func TestImportStylesWithInheritance(t *testing.T) {
	parts := minimalDocument(`<w:p><w:pPr><w:pStyle w:val="sub"/></w:pPr><w:r><w:t>x</w:t></w:r></w:p>`)
	parts["word/styles.xml"] = `<?xml version="1.0"?>` +
		`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		// Child listed before parent on purpose.
		`<w:style w:type="paragraph" w:styleId="sub"><w:name w:val="Subheading"/><w:basedOn w:val="head"/>` +
		`<w:rPr><w:i/></w:rPr></w:style>` +
		`<w:style w:type="paragraph" w:styleId="head"><w:name w:val="Heading"/>` +
		`<w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>` +
		`</w:styles>`
	d, _, err := Import(buildArchive(t, parts), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	named, ok := d.Styles.Lookup("Subheading")
	if !ok {
		t.Fatal("Subheading not defined")
	}
	if named.Parent != "Heading" {
		t.Fatalf("parent not resolved: %q", named.Parent)
	}
	flat := d.Styles.Flatten("Subheading")
	if flat.Bold == nil || !*flat.Bold || flat.Italic == nil || !*flat.Italic {
		t.Fatalf("inheritance chain broken: %+v", flat)
	}
	if d.Blocks[0].Para.StyleName != "Subheading" {
		t.Fatalf("paragraph style reference: %q", d.Blocks[0].Para.StyleName)
	}
}

func TestRoundTrip(t *testing.T) {
	want := doc.New()
	want.Meta.Page = doc.PageSetup{WidthPt: 612, HeightPt: 792, MarginPt: 72}
	if err := want.Styles.Define("Heading", style.Attrs{Bold: style.Bool(true), SizePt: style.Float(18)}, ""); err != nil {
		t.Fatal(err)
	}

	png := pngBytes(t, 4, 4)
	want.Images["image1.png"] = &doc.ImageResource{Name: "image1.png", MIME: "image/png", Width: 4, Height: 4, Data: png}

	table := doc.NewTable(2, 2)
	for ri := 0; ri < 2; ri++ {
		for ci := 0; ci < 2; ci++ {
			table.Rows[ri][ci].Blocks = []*doc.Block{
				doc.NewParagraphBlock("", doc.NewTextRun("cell", style.Attrs{})),
			}
		}
	}

	want.Blocks = []*doc.Block{
		doc.NewParagraphBlock("Heading", doc.NewTextRun("Title", style.Attrs{})),
		doc.NewParagraphBlock("",
			doc.NewTextRun("normal ", style.Attrs{}),
			doc.NewTextRun("marked", style.Attrs{Background: style.String("#ffff00")}),
			&doc.Run{Kind: doc.RunBreak},
			doc.NewTextRun("second line", style.Attrs{Italic: style.Bool(true)}),
		),
		{Kind: doc.BlockListItem, List: &doc.ListItem{Level: 1, Ordered: true,
			Para: doc.Paragraph{Runs: []*doc.Run{doc.NewTextRun("step one", style.Attrs{})}}}},
		{Kind: doc.BlockTable, Table: table},
		doc.NewPageBreak(),
		doc.NewParagraphBlock("", &doc.Run{Kind: doc.RunImage, ImageRef: "image1.png"}),
	}

	var buf bytes.Buffer
	if _, err := Export(&buf, want, logger(t)); err != nil {
		t.Fatal(err)
	}
	got, warnings, err := Import(buf.Bytes(), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("round trip should be warning free, got %v", warnings)
	}
	if d := doc.Diff(want, got); d != "" {
		t.Fatalf("round trip changed the document: %s", d)
	}
}

func TestExportStyleNamesSurviveAsDisplayNames(t *testing.T) {
	d := doc.New()
	if err := d.Styles.Define("My Fancy Style", style.Attrs{Bold: style.Bool(true)}, ""); err != nil {
		t.Fatal(err)
	}
	d.Blocks = []*doc.Block{doc.NewParagraphBlock("My Fancy Style", doc.NewTextRun("x", style.Attrs{}))}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, logger(t)); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var stylesXML []byte
	for _, f := range zr.File {
		if f.Name == "word/styles.xml" {
			stylesXML, err = readZipFile(f)
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(stylesXML); err != nil {
		t.Fatal(err)
	}
	name := tree.FindElement("//w:style/w:name")
	if name == nil || name.SelectAttrValue("w:val", "") != "My Fancy Style" {
		t.Fatalf("display name not preserved: %s", stylesXML)
	}
	id := tree.FindElement("//w:style").SelectAttrValue("w:styleId", "")
	if strings.Contains(id, " ") {
		t.Fatalf("style id must not contain spaces: %q", id)
	}
}

func TestExportReadingAidDefaults(t *testing.T) {
	d := doc.New()
	d.Meta.ReadingAid = true
	d.Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("x", style.Attrs{}))}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, logger(t)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("OpenDyslexic")) {
		t.Fatal("reading aid font not applied to document defaults")
	}
}
