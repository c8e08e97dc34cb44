package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"olc/common"
	"olc/config"
	"olc/convert"
	"olc/doc"
	"olc/speech"
	"olc/style"
)

func logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func newSession(t *testing.T) *Session {
	return New(config.Default(), logger(t))
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Document.ReadingAid = true
	s := New(cfg, logger(t))

	if s.Document().Meta.Lang != "fr-FR" {
		t.Fatalf("language %q", s.Document().Meta.Lang)
	}
	if !s.Document().Meta.ReadingAid {
		t.Fatal("reading aid hint not applied")
	}
	if s.Dirty() {
		t.Fatal("fresh session is dirty")
	}
	if s.DefaultExportFormat() != common.FormatOLC {
		t.Fatalf("default export format %s", s.DefaultExportFormat())
	}
}

func TestInsertDictation(t *testing.T) {
	s := newSession(t)

	if err := s.InsertDictation(speech.Recognition{Text: "hello world"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertDictation(speech.Recognition{Punctuation: "period"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertDictation(speech.Recognition{Text: "next sentence"}); err != nil {
		t.Fatal(err)
	}

	got := s.Document().PlainText(0, 1)
	if got != "hello world. next sentence " {
		t.Fatalf("dictated text %q", got)
	}
	if !s.Dirty() {
		t.Fatal("dictation did not mark the session dirty")
	}
	if s.WordCount() != 4 {
		t.Fatalf("word count %d", s.WordCount())
	}
}

func TestInsertDictationIgnoresEmpty(t *testing.T) {
	s := newSession(t)
	if err := s.InsertDictation(speech.Recognition{}); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("empty fragment must not dirty the session")
	}
	if len(s.Document().Blocks) != 0 {
		t.Fatal("empty fragment created blocks")
	}
}

func TestSetCursorValidation(t *testing.T) {
	s := newSession(t)
	d := s.Document()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("one two", style.Attrs{})),
	}

	if err := s.SetCursor(Cursor{Block: 0, Run: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCursor(Cursor{Block: 5}); err == nil {
		t.Fatal("out of range block accepted")
	}
	if err := s.SetCursor(Cursor{Block: 0, Run: 9}); err == nil {
		t.Fatal("out of range run accepted")
	}
}

func TestSaveAsAndReopen(t *testing.T) {
	log := logger(t)
	s := newSession(t)
	if err := s.InsertDictation(speech.Recognition{Text: "saved words"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "doc.olc")
	if _, err := s.SaveAs(context.Background(), path, common.FormatOLC, convert.Options{}); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("session dirty after native save")
	}
	if s.Path() != path || s.Format() != common.FormatOLC {
		t.Fatalf("session file not adopted: %q %s", s.Path(), s.Format())
	}

	reopened, warnings, err := Open(path, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if diff := doc.Diff(s.Document(), reopened.Document()); diff != "" {
		t.Fatalf("reopened document differs:\n%s", diff)
	}
	if reopened.DefaultExportFormat() != common.FormatOLC {
		t.Fatalf("default export format %s", reopened.DefaultExportFormat())
	}
}

func TestExportDoesNotAdoptPath(t *testing.T) {
	s := newSession(t)
	if err := s.InsertDictation(speech.Recognition{Text: "copy"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "copy.txt")
	if _, err := s.Export(context.Background(), path, common.FormatTxt, convert.Options{}); err != nil {
		t.Fatal(err)
	}
	if s.Path() != "" {
		t.Fatalf("export adopted path %q", s.Path())
	}
	if !s.Dirty() {
		t.Fatal("lossy export must not clear the dirty flag")
	}
}

func TestSaveWithoutPathFails(t *testing.T) {
	s := newSession(t)
	if _, err := s.Save(context.Background(), convert.Options{}); err == nil {
		t.Fatal("expected error for pathless save")
	}
}

func TestDictationOpensParagraphAfterPageBreak(t *testing.T) {
	s := newSession(t)
	d := s.Document()
	d.Blocks = []*doc.Block{doc.NewPageBreak()}

	if err := s.SetCursor(Cursor{Block: 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertDictation(speech.Recognition{Text: "fresh"}); err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 || d.Blocks[0].Kind != doc.BlockParagraph {
		t.Fatalf("paragraph not opened: %+v", d.Blocks)
	}
	if got := d.PlainText(0, 1); !strings.HasPrefix(got, "fresh") {
		t.Fatalf("text %q", got)
	}
}
