package pdf

import (
	"bytes"
	"image"
	"image/png"
	"regexp"
	"strconv"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"olc/doc"
	"olc/style"
)

func logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func export(t *testing.T, d *doc.Document) ([]byte, []string) {
	t.Helper()
	var buf bytes.Buffer
	warnings, err := Export(&buf, d, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return buf.Bytes(), codes
}

func TestExportStructure(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("Hello world", style.Attrs{})),
	}
	out, _ := export(t, d)

	if !bytes.HasPrefix(out, []byte("%PDF-1.7\n")) {
		t.Fatal("missing pdf header")
	}
	if !bytes.Contains(out, []byte("/Type /Catalog")) || !bytes.Contains(out, []byte("/Type /Pages")) {
		t.Fatal("missing document skeleton")
	}
	if !bytes.Contains(out, []byte("(Hello world) Tj")) {
		t.Fatal("text not placed")
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatal("missing trailer end")
	}

	// startxref must point at the xref keyword.
	re := regexp.MustCompile(`startxref\n(\d+)\n%%EOF\n$`)
	m := re.FindSubmatch(out)
	if m == nil {
		t.Fatal("startxref not found")
	}
	off, err := strconv.Atoi(string(m[1]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out[off:], []byte("xref\n")) {
		t.Fatalf("startxref offset %d does not point at xref table", off)
	}
}

func TestExportBoldUsesBoldFont(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("loud", style.Attrs{Bold: style.Bool(true)})),
	}
	out, _ := export(t, d)
	if !bytes.Contains(out, []byte("/Helvetica-Bold")) {
		t.Fatal("bold base font not declared")
	}
	if !bytes.Contains(out, []byte("BT /F2 ")) {
		t.Fatal("bold text not set in F2")
	}
}

func TestExportColor(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("red", style.Attrs{Color: style.String("#ff0000")})),
	}
	out, _ := export(t, d)
	if !bytes.Contains(out, []byte("1.000 0.000 0.000 rg")) {
		t.Fatal("fill color not set")
	}
}

func TestExportPageBreakAddsPage(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("one", style.Attrs{})),
		doc.NewPageBreak(),
		doc.NewParagraphBlock("", doc.NewTextRun("two", style.Attrs{})),
	}
	out, _ := export(t, d)
	if !bytes.Contains(out, []byte("/Count 2")) {
		t.Fatal("expected two pages")
	}
}

func TestExportOverflowPaginates(t *testing.T) {
	d := doc.New()
	d.Meta.Page = doc.PageSetup{WidthPt: 200, HeightPt: 120, MarginPt: 20}
	for i := 0; i < 20; i++ {
		d.Blocks = append(d.Blocks,
			doc.NewParagraphBlock("", doc.NewTextRun("filler paragraph text", style.Attrs{})))
	}
	out, _ := export(t, d)
	re := regexp.MustCompile(`/Count (\d+)`)
	m := re.FindSubmatch(out)
	if m == nil {
		t.Fatal("page count not found")
	}
	if n, _ := strconv.Atoi(string(m[1])); n < 2 {
		t.Fatalf("expected pagination across pages, got %d", n)
	}
}

func TestExportTableFlattenedWarning(t *testing.T) {
	d := doc.New()
	table := doc.NewTable(1, 2)
	table.Rows[0][0].Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("a", style.Attrs{}))}
	table.Rows[0][1].Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("b", style.Attrs{}))}
	d.Blocks = []*doc.Block{{Kind: doc.BlockTable, Table: table}}

	_, codes := export(t, d)
	found := false
	for _, c := range codes {
		if c == "table-flattened" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected table-flattened warning, got %v", codes)
	}
}

func TestExportEmbedsImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatal(err)
	}
	d := doc.New()
	d.Images["pic"] = &doc.ImageResource{Name: "pic", MIME: "image/png", Width: 3, Height: 3, Data: buf.Bytes()}
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", &doc.Run{Kind: doc.RunImage, ImageRef: "pic"}),
	}
	out, _ := export(t, d)
	if !bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Fatal("image xobject missing")
	}
	if !bytes.Contains(out, []byte(" Do Q")) {
		t.Fatal("image not drawn")
	}
}

func TestExportSubstitutesUnmappableCharacters(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("greek δ here", style.Attrs{})),
	}
	out, codes := export(t, d)
	found := false
	for _, c := range codes {
		if c == "characters-substituted" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected substitution warning, got %v", codes)
	}
	if !bytes.Contains(out, []byte("(greek ? here)")) {
		t.Fatal("unmappable character not substituted")
	}
}
