package speech

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"olc/doc"
	"olc/style"
)

func logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func TestSplitterSentences(t *testing.T) {
	s := NewSplitter(nil, logger(t))
	if s == nil {
		t.Fatal("no splitter")
	}
	got := s.Split("Mr. Smith went to Washington. He liked it there! Did he stay?")
	if len(got) != 3 {
		t.Fatalf("got %d sentences: %q", len(got), got)
	}
	if got[0] != "Mr. Smith went to Washington. " {
		t.Fatalf("first sentence %q", got[0])
	}
}

func TestNilSplitterPassesThrough(t *testing.T) {
	var s *Splitter
	got := s.Split("One. Two.")
	if len(got) != 1 || got[0] != "One. Two." {
		t.Fatalf("got %q", got)
	}
}

func TestProjectPerBlock(t *testing.T) {
	d := doc.New()
	d.Meta.Lang = "en-US"
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("First block.", style.Attrs{})),
		doc.NewPageBreak(),
		doc.NewParagraphBlock("", doc.NewTextRun("Second block.", style.Attrs{})),
	}

	got := Project(d, 0, len(d.Blocks), nil)
	if len(got) != 2 {
		t.Fatalf("got %d utterances: %+v", len(got), got)
	}
	if got[0].BlockIndex != 0 || got[0].Text != "First block." || got[0].Lang != "en-US" {
		t.Fatalf("first utterance %+v", got[0])
	}
	if got[1].BlockIndex != 2 || got[1].Text != "Second block." {
		t.Fatalf("second utterance %+v", got[1])
	}
}

func TestProjectSplitsOnLanguageChange(t *testing.T) {
	d := doc.New()
	d.Meta.Lang = "en-US"
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("",
			doc.NewTextRun("Hello ", style.Attrs{}),
			doc.NewTextRun("bonjour", style.Attrs{Lang: style.String("fr-FR")})),
	}

	got := Project(d, 0, len(d.Blocks), nil)
	if len(got) != 2 {
		t.Fatalf("got %d utterances: %+v", len(got), got)
	}
	if got[0].Lang != "en-US" || got[0].Text != "Hello" {
		t.Fatalf("first utterance %+v", got[0])
	}
	if got[1].Lang != "fr-FR" || got[1].Text != "bonjour" {
		t.Fatalf("second utterance %+v", got[1])
	}
	if got[1].BlockIndex != 0 {
		t.Fatalf("language change must not advance the block index: %+v", got[1])
	}
}

func TestProjectRange(t *testing.T) {
	d := doc.New()
	d.Blocks = []*doc.Block{
		doc.NewParagraphBlock("", doc.NewTextRun("one", style.Attrs{})),
		doc.NewParagraphBlock("", doc.NewTextRun("two", style.Attrs{})),
		doc.NewParagraphBlock("", doc.NewTextRun("three", style.Attrs{})),
	}

	got := Project(d, 1, 2, nil)
	if len(got) != 1 || got[0].Text != "two" {
		t.Fatalf("got %+v", got)
	}
}

func TestProjectTableAndSymbols(t *testing.T) {
	d := doc.New()
	table := doc.NewTable(1, 2)
	table.Rows[0][0].Blocks = []*doc.Block{doc.NewParagraphBlock("", doc.NewTextRun("left", style.Attrs{}))}
	table.Rows[0][1].Blocks = []*doc.Block{doc.NewParagraphBlock("", &doc.Run{
		Kind:   doc.RunSymbol,
		Symbol: &doc.Symbol{Glyph: "∑", Class: doc.SymbolMath},
	})}
	d.Blocks = []*doc.Block{{Kind: doc.BlockTable, Table: table}}

	got := Project(d, 0, len(d.Blocks), nil)
	if len(got) != 1 {
		t.Fatalf("got %d utterances: %+v", len(got), got)
	}
	if got[0].Text != "left∑" {
		t.Fatalf("table text %q", got[0].Text)
	}
}
