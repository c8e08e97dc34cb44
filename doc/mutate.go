package doc

import (
	"fmt"
	"unicode/utf8"
)

// Structural mutation primitives. Each call validates the request against
// the structural invariants before applying it; on failure the document is
// unmodified.

// InsertBlock inserts b at idx among the document top-level blocks.
func (d *Document) InsertBlock(idx int, b *Block) error {
	const op = "insert block"
	if b == nil {
		return structural(op, fmt.Errorf("nil block"))
	}
	if idx < 0 || idx > len(d.Blocks) {
		return structural(op, ErrIndexOutOfRange)
	}
	if err := validateBlock(b); err != nil {
		return structural(op, err)
	}
	if d.contains(b) {
		return structural(op, ErrBlockAttached)
	}
	d.Blocks = append(d.Blocks, nil)
	copy(d.Blocks[idx+1:], d.Blocks[idx:])
	d.Blocks[idx] = b
	d.Touch()
	return nil
}

// AppendBlock appends b after the last block.
func (d *Document) AppendBlock(b *Block) error {
	return d.InsertBlock(len(d.Blocks), b)
}

// RemoveBlock removes and returns the block at idx.
func (d *Document) RemoveBlock(idx int) (*Block, error) {
	const op = "remove block"
	if idx < 0 || idx >= len(d.Blocks) {
		return nil, structural(op, ErrIndexOutOfRange)
	}
	b := d.Blocks[idx]
	d.Blocks = append(d.Blocks[:idx], d.Blocks[idx+1:]...)
	d.Touch()
	return b, nil
}

// MoveBlock moves the block at from so that it ends up at index to.
func (d *Document) MoveBlock(from, to int) error {
	const op = "move block"
	if from < 0 || from >= len(d.Blocks) || to < 0 || to >= len(d.Blocks) {
		return structural(op, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	b := d.Blocks[from]
	rest := append(d.Blocks[:from], d.Blocks[from+1:]...)
	rest = append(rest, nil)
	copy(rest[to+1:], rest[to:])
	rest[to] = b
	d.Blocks = rest
	d.Touch()
	return nil
}

// InsertRun inserts r at idx inside paragraph block blockIdx.
func (d *Document) InsertRun(blockIdx, idx int, r *Run) error {
	const op = "insert run"
	p, err := d.paragraphAt(op, blockIdx)
	if err != nil {
		return err
	}
	if r == nil {
		return structural(op, fmt.Errorf("nil run"))
	}
	if err := validateRun(r); err != nil {
		return structural(op, err)
	}
	if idx < 0 || idx > len(p.Runs) {
		return structural(op, ErrIndexOutOfRange)
	}
	p.Runs = append(p.Runs, nil)
	copy(p.Runs[idx+1:], p.Runs[idx:])
	p.Runs[idx] = r
	d.Touch()
	return nil
}

// RemoveRun removes the run at idx from paragraph block blockIdx.
func (d *Document) RemoveRun(blockIdx, idx int) error {
	const op = "remove run"
	p, err := d.paragraphAt(op, blockIdx)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(p.Runs) {
		return structural(op, ErrIndexOutOfRange)
	}
	p.Runs = append(p.Runs[:idx], p.Runs[idx+1:]...)
	d.Touch()
	return nil
}

// SplitRun splits the text run at runIdx at the given rune offset into two
// runs carrying the same local attributes. Offsets at either end are
// rejected since they would produce an empty span.
func (d *Document) SplitRun(blockIdx, runIdx, offset int) error {
	const op = "split run"
	p, err := d.paragraphAt(op, blockIdx)
	if err != nil {
		return err
	}
	if runIdx < 0 || runIdx >= len(p.Runs) {
		return structural(op, ErrIndexOutOfRange)
	}
	r := p.Runs[runIdx]
	if r.Kind != RunText {
		return structural(op, ErrKindMismatch)
	}
	n := utf8.RuneCountInString(r.Text)
	if offset <= 0 || offset >= n {
		return structural(op, ErrIndexOutOfRange)
	}
	runes := []rune(r.Text)
	tail := &Run{Kind: RunText, Text: string(runes[offset:]), Attrs: r.Attrs.Clone()}
	r.Text = string(runes[:offset])
	p.Runs = append(p.Runs, nil)
	copy(p.Runs[runIdx+2:], p.Runs[runIdx+1:])
	p.Runs[runIdx+1] = tail
	d.Touch()
	return nil
}

// MergeRuns merges the text run at runIdx with its successor when both are
// text runs with equal local attributes.
func (d *Document) MergeRuns(blockIdx, runIdx int) error {
	const op = "merge runs"
	p, err := d.paragraphAt(op, blockIdx)
	if err != nil {
		return err
	}
	if runIdx < 0 || runIdx+1 >= len(p.Runs) {
		return structural(op, ErrIndexOutOfRange)
	}
	a, b := p.Runs[runIdx], p.Runs[runIdx+1]
	if a.Kind != RunText || b.Kind != RunText {
		return structural(op, ErrKindMismatch)
	}
	if !a.Attrs.Equal(b.Attrs) {
		return structural(op, fmt.Errorf("attribute sets differ"))
	}
	a.Text += b.Text
	p.Runs = append(p.Runs[:runIdx+1], p.Runs[runIdx+2:]...)
	d.Touch()
	return nil
}

// SplitParagraph splits the paragraph block at blockIdx before run runIdx,
// producing two paragraphs with the same style assignment.
func (d *Document) SplitParagraph(blockIdx, runIdx int) error {
	const op = "split paragraph"
	if blockIdx < 0 || blockIdx >= len(d.Blocks) {
		return structural(op, ErrIndexOutOfRange)
	}
	b := d.Blocks[blockIdx]
	if b.Kind != BlockParagraph || b.Para == nil {
		return structural(op, ErrKindMismatch)
	}
	p := b.Para
	if runIdx < 0 || runIdx > len(p.Runs) {
		return structural(op, ErrIndexOutOfRange)
	}
	tail := &Paragraph{StyleName: p.StyleName, Attrs: p.Attrs.Clone(), Runs: p.Runs[runIdx:]}
	p.Runs = p.Runs[:runIdx:runIdx]
	nb := &Block{Kind: BlockParagraph, Para: tail}
	d.Blocks = append(d.Blocks, nil)
	copy(d.Blocks[blockIdx+2:], d.Blocks[blockIdx+1:])
	d.Blocks[blockIdx+1] = nb
	d.Touch()
	return nil
}

// MergeParagraphs appends the paragraph at blockIdx+1 to the paragraph at
// blockIdx and removes the emptied block.
func (d *Document) MergeParagraphs(blockIdx int) error {
	const op = "merge paragraphs"
	if blockIdx < 0 || blockIdx+1 >= len(d.Blocks) {
		return structural(op, ErrIndexOutOfRange)
	}
	a, b := d.Blocks[blockIdx], d.Blocks[blockIdx+1]
	if a.Kind != BlockParagraph || b.Kind != BlockParagraph {
		return structural(op, ErrKindMismatch)
	}
	a.Para.Runs = append(a.Para.Runs, b.Para.Runs...)
	d.Blocks = append(d.Blocks[:blockIdx+1], d.Blocks[blockIdx+2:]...)
	d.Touch()
	return nil
}

// InsertTableRow inserts an empty row at idx into the table block.
func (d *Document) InsertTableRow(blockIdx, idx int) error {
	const op = "insert table row"
	t, err := d.tableAt(op, blockIdx)
	if err != nil {
		return err
	}
	if idx < 0 || idx > len(t.Rows) {
		return structural(op, ErrIndexOutOfRange)
	}
	cols := t.Cols()
	row := make([]*Cell, cols)
	for i := range row {
		row[i] = &Cell{}
	}
	t.Rows = append(t.Rows, nil)
	copy(t.Rows[idx+1:], t.Rows[idx:])
	t.Rows[idx] = row
	d.Touch()
	return nil
}

// RemoveTableRow removes the row at idx from the table block.
func (d *Document) RemoveTableRow(blockIdx, idx int) error {
	const op = "remove table row"
	t, err := d.tableAt(op, blockIdx)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(t.Rows) {
		return structural(op, ErrIndexOutOfRange)
	}
	t.Rows = append(t.Rows[:idx], t.Rows[idx+1:]...)
	d.Touch()
	return nil
}

// InsertTableColumn inserts an empty column at idx into every row of the
// table block, keeping the grid rectangular.
func (d *Document) InsertTableColumn(blockIdx, idx int) error {
	const op = "insert table column"
	t, err := d.tableAt(op, blockIdx)
	if err != nil {
		return err
	}
	if idx < 0 || idx > t.Cols() {
		return structural(op, ErrIndexOutOfRange)
	}
	for i := range t.Rows {
		row := append(t.Rows[i], nil)
		copy(row[idx+1:], row[idx:])
		row[idx] = &Cell{}
		t.Rows[i] = row
	}
	d.Touch()
	return nil
}

// RemoveTableColumn removes column idx from every row of the table block.
func (d *Document) RemoveTableColumn(blockIdx, idx int) error {
	const op = "remove table column"
	t, err := d.tableAt(op, blockIdx)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= t.Cols() {
		return structural(op, ErrIndexOutOfRange)
	}
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i][:idx], t.Rows[i][idx+1:]...)
	}
	d.Touch()
	return nil
}

func (d *Document) paragraphAt(op string, blockIdx int) (*Paragraph, error) {
	if blockIdx < 0 || blockIdx >= len(d.Blocks) {
		return nil, structural(op, ErrIndexOutOfRange)
	}
	p := d.Blocks[blockIdx].Paragraph()
	if p == nil {
		return nil, structural(op, ErrKindMismatch)
	}
	return p, nil
}

func (d *Document) tableAt(op string, blockIdx int) (*Table, error) {
	if blockIdx < 0 || blockIdx >= len(d.Blocks) {
		return nil, structural(op, ErrIndexOutOfRange)
	}
	b := d.Blocks[blockIdx]
	if b.Kind != BlockTable || b.Table == nil {
		return nil, structural(op, ErrKindMismatch)
	}
	return b.Table, nil
}

// validateBlock checks the tagged-variant consistency of a block and, for
// tables, the rectangular invariant, recursively through nested cells.
func validateBlock(b *Block) error {
	switch b.Kind {
	case BlockParagraph:
		if b.Para == nil {
			return fmt.Errorf("paragraph block without payload")
		}
		return validateRuns(b.Para.Runs)
	case BlockListItem:
		if b.List == nil {
			return fmt.Errorf("list item block without payload")
		}
		if b.List.Level < 1 {
			return fmt.Errorf("list nesting level is 1-based, got %d", b.List.Level)
		}
		return validateRuns(b.List.Para.Runs)
	case BlockTable:
		if b.Table == nil {
			return fmt.Errorf("table block without payload")
		}
		return validateTable(b.Table)
	case BlockPageBreak:
		return nil
	default:
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
}

func validateTable(t *Table) error {
	cols := t.Cols()
	for i, row := range t.Rows {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d cells, want %d: %w", i, len(row), cols, ErrNotRectangular)
		}
		for j, cell := range row {
			if cell == nil {
				return fmt.Errorf("nil cell at %d,%d", i, j)
			}
			for _, b := range cell.Blocks {
				if err := validateBlock(b); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateRuns(runs []*Run) error {
	for _, r := range runs {
		if err := validateRun(r); err != nil {
			return err
		}
	}
	return nil
}

func validateRun(r *Run) error {
	switch r.Kind {
	case RunText:
		if r.Text == "" {
			return ErrEmptyRun
		}
	case RunImage:
		if r.ImageRef == "" {
			return fmt.Errorf("image run without resource reference")
		}
	case RunSymbol:
		if r.Symbol == nil {
			return fmt.Errorf("symbol run without payload")
		}
	case RunBreak:
	default:
		return fmt.Errorf("unknown run kind %q", r.Kind)
	}
	return nil
}

// contains reports whether b is already attached anywhere in the document,
// including nested table cells.
func (d *Document) contains(b *Block) bool {
	found := false
	d.Walk(func(_ string, n Node) bool {
		if n.Block == b {
			found = true
			return false
		}
		return true
	})
	return found
}
