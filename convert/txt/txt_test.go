package txt

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

func TestImportParagraphSplit(t *testing.T) {
	d, warnings, err := Import([]byte("Hello\n\nWorld"), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(d.Blocks))
	}
	if got := d.PlainText(0, 1); got != "Hello" {
		t.Fatalf("first paragraph: %q", got)
	}
	if got := d.PlainText(1, 2); got != "World" {
		t.Fatalf("second paragraph: %q", got)
	}
}

func TestImportLineBreaksWithinParagraph(t *testing.T) {
	d, _, err := Import([]byte("line one\nline two\n\nnext"), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(d.Blocks))
	}
	p := d.Blocks[0].Paragraph()
	if len(p.Runs) != 3 {
		t.Fatalf("expected text/break/text runs, got %d", len(p.Runs))
	}
	if p.Runs[1].Kind != doc.RunBreak {
		t.Fatalf("expected line break run, got %q", p.Runs[1].Kind)
	}
}

func TestImportFormFeed(t *testing.T) {
	d, _, err := Import([]byte("page one\fpage two"), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 3 {
		t.Fatalf("expected paragraph, page break, paragraph; got %d blocks", len(d.Blocks))
	}
	if d.Blocks[1].Kind != doc.BlockPageBreak {
		t.Fatalf("expected page break, got %q", d.Blocks[1].Kind)
	}
}

func TestImportRejectsBinary(t *testing.T) {
	_, _, err := Import([]byte{'M', 'Z', 0, 0, 1, 2}, logger(t))
	var ee *common.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestImportTranscodesLegacyCharset(t *testing.T) {
	// "café" in Windows-1252.
	d, warnings, err := Import([]byte{'c', 'a', 'f', 0xe9}, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Code != "charset-guessed" {
		t.Fatalf("expected one charset warning, got %v", warnings)
	}
	if got := d.PlainText(0, 1); got != "café" {
		t.Fatalf("expected café, got %q", got)
	}
}

func TestImportCRLF(t *testing.T) {
	d, _, err := Import([]byte("a\r\n\r\nb"), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(d.Blocks))
	}
}

func TestExportRoundTrip(t *testing.T) {
	want, _, err := Import([]byte("Hello\n\nWorld\fnew page"), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := Export(&buf, want, Options{}, logger(t)); err != nil {
		t.Fatal(err)
	}
	got, _, err := Import(buf.Bytes(), logger(t))
	if err != nil {
		t.Fatal(err)
	}
	if d := doc.Diff(want, got); d != "" {
		t.Fatalf("text round trip changed the document: %s", d)
	}
}

func TestExportWarnsOnFormatting(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("bold", style.Attrs{Bold: style.Bool(true)})),
	}
	var buf bytes.Buffer
	warnings, err := Export(&buf, d, Options{}, logger(t))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range warnings {
		if w.Code == "formatting-dropped" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected formatting-dropped warning, got %v", warnings)
	}
	if got := strings.TrimRight(buf.String(), "\n"); got != "bold" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestExportTableAsTabs(t *testing.T) {
	d := doc.New()
	table := doc.NewTable(1, 2)
	table.Rows[0][0].Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("a", style.Attrs{}))}
	table.Rows[0][1].Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("b", style.Attrs{}))}
	d.Blocks = []*doc.Block{{Kind: doc.BlockTable, Table: table}}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, Options{}, logger(t)); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimRight(buf.String(), "\n"); got != "a\tb" {
		t.Fatalf("expected tab-separated cells, got %q", got)
	}
}

func TestExportTargetEncoding(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("café", style.Attrs{}))}

	var buf bytes.Buffer
	if _, err := Export(&buf, d, Options{Encoding: "windows-1252"}, logger(t)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte{0xe9}) {
		t.Fatalf("expected windows-1252 bytes, got %v", buf.Bytes())
	}

	d.Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("δ", style.Attrs{}))}
	if _, err := Export(&bytes.Buffer{}, d, Options{Encoding: "windows-1252"}, logger(t)); err == nil {
		t.Fatal("expected error for unrepresentable character")
	}
}
