package html

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"olc/common"
	"olc/doc"
	"olc/style"
)

func logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func TestImportBasicTags(t *testing.T) {
	in := `<html lang="en"><body><p>plain <b>bold</b> and <i>italic</i></p></body></html>`
	d, warnings, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if d.Meta.Lang != "en" {
		t.Fatalf("expected lang en, got %q", d.Meta.Lang)
	}
	if len(d.Blocks) != 1 {
		t.Fatalf("expected one paragraph, got %d blocks", len(d.Blocks))
	}
	p := d.Blocks[0].Paragraph()
	if got := d.PlainText(0, 1); got != "plain bold and italic" {
		t.Fatalf("plain text: %q", got)
	}
	var bold, italic *doc.Run
	for _, r := range p.Runs {
		switch strings.TrimSpace(r.Text) {
		case "bold":
			bold = r
		case "italic":
			italic = r
		}
	}
	if bold == nil || bold.Attrs.Bold == nil || !*bold.Attrs.Bold {
		t.Fatal("bold run not detected")
	}
	if italic == nil || italic.Attrs.Italic == nil || !*italic.Attrs.Italic {
		t.Fatal("italic run not detected")
	}
}

func TestImportInlineCSS(t *testing.T) {
	in := `<p style="text-align:center"><span style="color:#ff0000;font-size:18pt">red</span></p>`
	d, _, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	p := d.Blocks[0].Paragraph()
	if p.Attrs.Alignment == nil || *p.Attrs.Alignment != style.AlignCenter {
		t.Fatal("paragraph alignment not parsed")
	}
	r := p.Runs[0]
	if r.Attrs.Color == nil || *r.Attrs.Color != "#ff0000" {
		t.Fatalf("color not parsed: %+v", r.Attrs)
	}
	if r.Attrs.SizePt == nil || *r.Attrs.SizePt != 18 {
		t.Fatalf("font size not parsed: %+v", r.Attrs)
	}
}

func TestImportUnknownElementWarns(t *testing.T) {
	in := `<body><figure><p>caption text</p></figure></body>`
	d, warnings, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d.PlainText(0, len(d.Blocks)), "caption text") {
		t.Fatal("text inside unknown element lost")
	}
	found := false
	for _, w := range warnings {
		if w.Code == "unknown-element" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown-element warning, got %v", warnings)
	}
}

func TestImportHeadingsDefineStyles(t *testing.T) {
	in := `<h1>Title</h1><p>body</p>`
	d, _, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if d.Blocks[0].Para.StyleName != "Heading 1" {
		t.Fatalf("expected Heading 1 style, got %q", d.Blocks[0].Para.StyleName)
	}
	named, ok := d.Styles.Lookup("Heading 1")
	if !ok {
		t.Fatal("Heading 1 style not defined")
	}
	if named.Attrs.Bold == nil || !*named.Attrs.Bold {
		t.Fatal("heading style should be bold")
	}
}

func TestImportLists(t *testing.T) {
	in := `<ol><li>one</li><li>two</li></ol>`
	d, _, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("expected 2 list items, got %d blocks", len(d.Blocks))
	}
	for _, b := range d.Blocks {
		if b.Kind != doc.BlockListItem || !b.List.Ordered || b.List.Level != 1 {
			t.Fatalf("unexpected list item %+v", b)
		}
	}
}

func TestImportTablePadsRaggedRows(t *testing.T) {
	in := `<table><tr><td>a</td><td>b</td></tr><tr><td>c</td></tr></table>`
	d, _, err := Import([]byte(in), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	tbl := d.Blocks[0].Table
	if tbl.Cols() != 2 {
		t.Fatalf("expected 2 columns, got %d", tbl.Cols())
	}
	for ri, row := range tbl.Rows {
		if len(row) != 2 {
			t.Fatalf("row %d not padded: %d cells", ri, len(row))
		}
	}
}

func TestImportRejectsBinary(t *testing.T) {
	_, _, err := Import([]byte{0x7f, 'E', 'L', 'F', 0, 0}, logger(t))
	var ee *common.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestExportInlinesNamedStyles(t *testing.T) {
	d := doc.New()
	if err := d.Styles.Define("Warning", style.Attrs{Bold: style.Bool(true), Color: style.String("#aa0000")}, ""); err != nil {
		t.Fatal(err)
	}
	d.Blocks = []*doc.Block{doc.NewParagraphBlock("Warning", doc.NewTextRun("danger", style.Attrs{}))}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, logger(t)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "font-weight:bold") || !strings.Contains(out, "color:#aa0000") {
		t.Fatalf("named style not inlined: %s", out)
	}
	if strings.Contains(out, "Warning") {
		t.Fatalf("style name must not leak into output: %s", out)
	}
}

func TestExportReadingAid(t *testing.T) {
	d := doc.New()
	d.Meta.ReadingAid = true
	d.Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("hi", style.Attrs{}))}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, logger(t)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "OpenDyslexic") {
		t.Fatal("reading aid font not applied")
	}
}

func TestRoundTripBoldRed(t *testing.T) {
	want := doc.New()
	want.Blocks = []*doc.Block{doc.NewParagraphBlock("",
		doc.NewTextRun("alert", style.Attrs{Bold: style.Bool(true), Color: style.String("#ff0000")}),
	)}

	var buf bytes.Buffer
	if _, err := Export(&buf, want, logger(t)); err != nil {
		t.Fatal(err)
	}
	got, _, err := Import(buf.Bytes(), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Blocks) != 1 {
		t.Fatalf("expected one paragraph, got %d", len(got.Blocks))
	}
	r := got.Blocks[0].Paragraph().Runs[0]
	if r.Text != "alert" {
		t.Fatalf("text changed: %q", r.Text)
	}
	if r.Attrs.Bold == nil || !*r.Attrs.Bold {
		t.Fatal("bold lost in round trip")
	}
	if r.Attrs.Color == nil || *r.Attrs.Color != "#ff0000" {
		t.Fatal("color lost in round trip")
	}
}

func TestRoundTripImage(t *testing.T) {
	want := doc.New()
	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	want.Images["image1"] = &doc.ImageResource{Name: "image1", MIME: "image/png", Data: png}
	want.Blocks = []*doc.Block{doc.NewParagraphBlock("", &doc.Run{Kind: doc.RunImage, ImageRef: "image1"})}

	var buf bytes.Buffer
	if _, err := Export(&buf, want, logger(t)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "data:image/png;base64,") {
		t.Fatalf("image not embedded: %s", buf.String())
	}
}
