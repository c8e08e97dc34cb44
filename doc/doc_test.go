package doc

import (
	"errors"
	"testing"

	"olc/style"
)

func twoParagraphs() *Document {
	d := New()
	d.Blocks = []*Block{
		NewParagraphBlock("", NewTextRun("one", style.Attrs{})),
		NewParagraphBlock("", NewTextRun("two", style.Attrs{})),
	}
	return d
}

func TestInsertAndRemoveBlock(t *testing.T) {
	d := twoParagraphs()
	if err := d.InsertBlock(1, NewPageBreak()); err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 3 || d.Blocks[1].Kind != BlockPageBreak {
		t.Fatalf("insert misplaced: %+v", d.Blocks)
	}
	b, err := d.RemoveBlock(1)
	if err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockPageBreak || len(d.Blocks) != 2 {
		t.Fatal("wrong block removed")
	}
}

func TestMutationsRejectBadIndex(t *testing.T) {
	d := twoParagraphs()
	before := d.Clone()

	cases := []struct {
		name string
		call func() error
	}{
		{"insert block", func() error { return d.InsertBlock(5, NewPageBreak()) }},
		{"remove block", func() error { _, err := d.RemoveBlock(2); return err }},
		{"move block", func() error { return d.MoveBlock(0, 7) }},
		{"insert run", func() error { return d.InsertRun(0, 4, NewTextRun("x", style.Attrs{})) }},
		{"remove run", func() error { return d.RemoveRun(0, 1) }},
		{"split run", func() error { return d.SplitRun(0, 0, 0) }},
		{"merge runs", func() error { return d.MergeRuns(0, 0) }},
	}
	for _, tc := range cases {
		err := tc.call()
		var se *StructuralError
		if !errors.As(err, &se) {
			t.Fatalf("%s: got %v, want StructuralError", tc.name, err)
		}
		if diff := Diff(before, d); diff != "" {
			t.Fatalf("%s: rejected mutation modified the document:\n%s", tc.name, diff)
		}
	}
}

func TestInsertBlockRejectsAttached(t *testing.T) {
	d := twoParagraphs()
	err := d.InsertBlock(0, d.Blocks[1])
	if !errors.Is(err, ErrBlockAttached) {
		t.Fatalf("got %v, want ErrBlockAttached", err)
	}
}

func TestInsertBlockRejectsZeroListLevel(t *testing.T) {
	d := New()
	item := &Block{Kind: BlockListItem, List: &ListItem{
		Para: Paragraph{Runs: []*Run{NewTextRun("x", style.Attrs{})}},
	}}

	var se *StructuralError
	if err := d.InsertBlock(0, item); !errors.As(err, &se) {
		t.Fatalf("got %v, want StructuralError for level 0", err)
	}
	if len(d.Blocks) != 0 {
		t.Fatal("rejected insert modified the document")
	}

	item.List.Level = 1
	if err := d.InsertBlock(0, item); err != nil {
		t.Fatal(err)
	}
}

func TestInsertRunRejectsEmptyText(t *testing.T) {
	d := twoParagraphs()
	err := d.InsertRun(0, 0, &Run{Kind: RunText})
	if !errors.Is(err, ErrEmptyRun) {
		t.Fatalf("got %v, want ErrEmptyRun", err)
	}
}

func TestMoveBlock(t *testing.T) {
	d := twoParagraphs()
	if err := d.AppendBlock(NewParagraphBlock("", NewTextRun("three", style.Attrs{}))); err != nil {
		t.Fatal(err)
	}
	if err := d.MoveBlock(2, 0); err != nil {
		t.Fatal(err)
	}
	if got := d.PlainText(0, 1); got != "three" {
		t.Fatalf("move result %q", got)
	}
}

func TestSplitAndMergeRun(t *testing.T) {
	d := New()
	d.Blocks = []*Block{
		NewParagraphBlock("", NewTextRun("héllo", style.Attrs{Bold: style.Bool(true)})),
	}
	if err := d.SplitRun(0, 0, 2); err != nil {
		t.Fatal(err)
	}
	p := d.Blocks[0].Para
	if len(p.Runs) != 2 || p.Runs[0].Text != "hé" || p.Runs[1].Text != "llo" {
		t.Fatalf("split result %+v", p.Runs)
	}
	if p.Runs[1].Attrs.Bold == nil || !*p.Runs[1].Attrs.Bold {
		t.Fatal("split lost attributes")
	}
	if err := d.MergeRuns(0, 0); err != nil {
		t.Fatal(err)
	}
	if len(p.Runs) != 1 || p.Runs[0].Text != "héllo" {
		t.Fatalf("merge result %+v", p.Runs)
	}
}

func TestMergeRunsRejectsDifferentAttrs(t *testing.T) {
	d := New()
	d.Blocks = []*Block{
		NewParagraphBlock("",
			NewTextRun("a", style.Attrs{Bold: style.Bool(true)}),
			NewTextRun("b", style.Attrs{})),
	}
	var se *StructuralError
	if err := d.MergeRuns(0, 0); !errors.As(err, &se) {
		t.Fatalf("got %v, want StructuralError", err)
	}
}

func TestSplitAndMergeParagraph(t *testing.T) {
	d := New()
	d.Blocks = []*Block{
		NewParagraphBlock("Body",
			NewTextRun("head", style.Attrs{}),
			NewTextRun("tail", style.Attrs{})),
	}
	if err := d.SplitParagraph(0, 1); err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 2 {
		t.Fatalf("split produced %d blocks", len(d.Blocks))
	}
	if d.Blocks[1].Para.StyleName != "Body" {
		t.Fatal("split lost style assignment")
	}
	if d.Blocks[0].Para.Runs[0].Text != "head" || d.Blocks[1].Para.Runs[0].Text != "tail" {
		t.Fatal("runs distributed wrong")
	}
	if err := d.MergeParagraphs(0); err != nil {
		t.Fatal(err)
	}
	if len(d.Blocks) != 1 || len(d.Blocks[0].Para.Runs) != 2 {
		t.Fatalf("merge result %+v", d.Blocks)
	}
}

func TestTableStaysRectangular(t *testing.T) {
	d := New()
	d.Blocks = []*Block{{Kind: BlockTable, Table: NewTable(2, 2)}}

	if err := d.InsertTableRow(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertTableColumn(0, 0); err != nil {
		t.Fatal(err)
	}
	tbl := d.Blocks[0].Table
	if len(tbl.Rows) != 3 {
		t.Fatalf("row count %d", len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		if len(row) != 3 {
			t.Fatalf("row %d has %d cells", i, len(row))
		}
	}

	if err := d.RemoveTableColumn(0, 2); err != nil {
		t.Fatal(err)
	}
	for i, row := range tbl.Rows {
		if len(row) != 2 {
			t.Fatalf("row %d has %d cells after column removal", i, len(row))
		}
	}

	var se *StructuralError
	if err := d.RemoveTableRow(0, 9); !errors.As(err, &se) {
		t.Fatal("bad row index accepted")
	}
}

func TestInsertBlockRejectsRaggedTable(t *testing.T) {
	d := New()
	ragged := &Table{Rows: [][]*Cell{{{}, {}}, {{}}}}
	err := d.InsertBlock(0, &Block{Kind: BlockTable, Table: ragged})
	if !errors.Is(err, ErrNotRectangular) {
		t.Fatalf("got %v, want ErrNotRectangular", err)
	}
}

func TestWalkVisitsInOrder(t *testing.T) {
	d := New()
	table := NewTable(1, 1)
	table.Rows[0][0].Blocks = []*Block{NewParagraphBlock("", NewTextRun("cell", style.Attrs{}))}
	d.Blocks = []*Block{
		NewParagraphBlock("", NewTextRun("a", style.Attrs{}), NewTextRun("b", style.Attrs{})),
		{Kind: BlockTable, Table: table},
	}

	var paths []string
	d.Walk(func(path string, n Node) bool {
		paths = append(paths, path)
		return true
	})
	want := []string{
		"blocks[0]",
		"blocks[0].runs[0]",
		"blocks[0].runs[1]",
		"blocks[1]",
		"blocks[1].rows[0][0].blocks[0]",
		"blocks[1].rows[0][0].blocks[0].runs[0]",
	}
	if len(paths) != len(want) {
		t.Fatalf("got %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d: got %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWalkStops(t *testing.T) {
	d := twoParagraphs()
	count := 0
	d.Walk(func(string, Node) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("visited %d nodes after stop", count)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := twoParagraphs()
	d.Images["pic"] = &ImageResource{Name: "pic", MIME: "image/png", Data: []byte{1, 2, 3}}
	if err := d.Styles.Define("Body", style.Attrs{Bold: style.Bool(true)}, ""); err != nil {
		t.Fatal(err)
	}

	c := d.Clone()
	if diff := Diff(d, c); diff != "" {
		t.Fatalf("clone differs:\n%s", diff)
	}

	c.Blocks[0].Para.Runs[0].Text = "changed"
	c.Images["pic"].Data[0] = 9
	if d.Blocks[0].Para.Runs[0].Text != "one" {
		t.Fatal("clone shares runs with original")
	}
	if d.Images["pic"].Data[0] != 1 {
		t.Fatal("clone shares image bytes with original")
	}
	if Equal(d, c) {
		t.Fatal("documents still compare equal after divergence")
	}
}

func TestPlainTextAndCounts(t *testing.T) {
	d := New()
	table := NewTable(1, 2)
	table.Rows[0][0].Blocks = []*Block{NewParagraphBlock("", NewTextRun("left", style.Attrs{}))}
	table.Rows[0][1].Blocks = []*Block{NewParagraphBlock("", NewTextRun("right", style.Attrs{}))}
	d.Blocks = []*Block{
		NewParagraphBlock("",
			NewTextRun("first", style.Attrs{}),
			&Run{Kind: RunBreak},
			NewTextRun("second", style.Attrs{})),
		{Kind: BlockTable, Table: table},
	}

	got := d.PlainText(0, len(d.Blocks))
	if got != "first\nsecond\nleft\tright" {
		t.Fatalf("plain text %q", got)
	}
	if d.WordCount() != 4 {
		t.Fatalf("word count %d", d.WordCount())
	}
	if d.CharCount() != len([]rune(got)) {
		t.Fatalf("char count %d", d.CharCount())
	}
}

func TestClassifySymbol(t *testing.T) {
	cases := []struct {
		glyph string
		want  SymbolClass
	}{
		{"∑", SymbolMath},
		{"±", SymbolMath},
		{"δ", SymbolGreek},
		{"→", SymbolArrow},
		{"¶", SymbolOther},
	}
	for _, tc := range cases {
		if got := ClassifySymbol(tc.glyph); got != tc.want {
			t.Fatalf("%q: got %s, want %s", tc.glyph, got, tc.want)
		}
	}
}
