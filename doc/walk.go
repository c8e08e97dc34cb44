package doc

import (
	"fmt"
	"strings"
)

// Walk is the single linear traversal used by every adapter and by the
// readback projection. It visits blocks and runs in document order with a
// stable path string per node ("blocks[2]", "blocks[2].runs[0]",
// "blocks[1].rows[0][3].blocks[0]", ...). The traversal is finite, lazy and
// restartable; returning false from the visitor stops it.

// Node is the traversal item: exactly one of Block or Run is set. For runs
// Para points at the owning paragraph so visitors can resolve styles.
type Node struct {
	Block *Block
	Run   *Run
	Para  *Paragraph
}

// Walk traverses the whole document in order.
func (d *Document) Walk(visit func(path string, n Node) bool) {
	walkBlocks(d.Blocks, "blocks", visit)
}

func walkBlocks(blocks []*Block, prefix string, visit func(path string, n Node) bool) bool {
	for i, b := range blocks {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if !visit(path, Node{Block: b}) {
			return false
		}
		switch b.Kind {
		case BlockParagraph, BlockListItem:
			p := b.Paragraph()
			if p == nil {
				continue
			}
			for j, r := range p.Runs {
				if !visit(fmt.Sprintf("%s.runs[%d]", path, j), Node{Run: r, Para: p}) {
					return false
				}
			}
		case BlockTable:
			if b.Table == nil {
				continue
			}
			for ri, row := range b.Table.Rows {
				for ci, cell := range row {
					cellPrefix := fmt.Sprintf("%s.rows[%d][%d].blocks", path, ri, ci)
					if !walkBlocks(cell.Blocks, cellPrefix, visit) {
						return false
					}
				}
			}
		}
	}
	return true
}

// PlainText returns the linearized text of the block range [from, to).
// Paragraphs are separated by newlines, table cells by tabs, line break
// runs become newlines and symbol glyphs are included verbatim. Image runs
// contribute nothing.
func (d *Document) PlainText(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(d.Blocks) || to < 0 {
		to = len(d.Blocks)
	}
	var sb strings.Builder
	for i := from; i < to; i++ {
		if i > from {
			sb.WriteString("\n")
		}
		blockPlainText(&sb, d.Blocks[i])
	}
	return sb.String()
}

func blockPlainText(sb *strings.Builder, b *Block) {
	switch b.Kind {
	case BlockParagraph, BlockListItem:
		if p := b.Paragraph(); p != nil {
			paragraphPlainText(sb, p)
		}
	case BlockTable:
		if b.Table == nil {
			return
		}
		for ri, row := range b.Table.Rows {
			if ri > 0 {
				sb.WriteString("\n")
			}
			for ci, cell := range row {
				if ci > 0 {
					sb.WriteString("\t")
				}
				for bi, cb := range cell.Blocks {
					if bi > 0 {
						sb.WriteString(" ")
					}
					blockPlainText(sb, cb)
				}
			}
		}
	case BlockPageBreak:
	}
}

func paragraphPlainText(sb *strings.Builder, p *Paragraph) {
	for _, r := range p.Runs {
		switch r.Kind {
		case RunText:
			sb.WriteString(r.Text)
		case RunSymbol:
			if r.Symbol != nil {
				sb.WriteString(r.Symbol.Glyph)
			}
		case RunBreak:
			sb.WriteString("\n")
		}
	}
}

// WordCount counts whitespace-separated words over the whole document.
func (d *Document) WordCount() int {
	return len(strings.Fields(d.PlainText(0, len(d.Blocks))))
}

// CharCount counts runes of the plain text projection.
func (d *Document) CharCount() int {
	return len([]rune(d.PlainText(0, len(d.Blocks))))
}
