package doc

import (
	"time"

	"github.com/google/uuid"

	"olc/style"
)

// Type definitions for the universal document tree.
//
// The model is a fixed tagged-variant vocabulary: every adapter maps its
// format onto these kinds instead of carrying format-specific nodes around.
// Blocks are owned by exactly one parent container (the document or a table
// cell), runs are owned by exactly one paragraph.

// Document is the root: ordered blocks, document metadata, an owned style
// registry and the embedded image resources referenced by image runs.
type Document struct {
	Meta   Meta
	Styles *style.Registry
	Blocks []*Block
	Images map[string]*ImageResource
}

// Meta holds document-level metadata persisted by the native codec.
type Meta struct {
	ID          string
	Application string
	Created     time.Time
	Modified    time.Time
	Lang        string // BCP-47 document language, speech readback default
	Page        PageSetup
	// ReadingAid is the dyslexia display mode rendering hint. It never
	// changes document content, the UI layer reads it to pick display
	// defaults.
	ReadingAid bool
}

// PageSetup describes the page geometry used by pagination and PDF render.
type PageSetup struct {
	WidthPt  float64
	HeightPt float64
	MarginPt float64
}

// A4 with one inch margins.
func DefaultPageSetup() PageSetup {
	return PageSetup{WidthPt: 595.28, HeightPt: 841.89, MarginPt: 72}
}

// ImageResource is an embedded image, stored once and referenced by name
// from image runs.
type ImageResource struct {
	Name   string
	MIME   string
	Data   []byte
	Width  int
	Height int
}

// BlockKind distinguishes the block-level variants.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockTable     BlockKind = "table"
	BlockListItem  BlockKind = "list-item"
	BlockPageBreak BlockKind = "page-break"
)

// Block is the tagged block-level variant. Exactly the pointer matching
// Kind is set; a page break carries no payload.
type Block struct {
	Kind  BlockKind
	Para  *Paragraph
	Table *Table
	List  *ListItem
}

// Paragraph owns an ordered run sequence. StyleName, when non-empty, names
// a registered style; Attrs are paragraph-level overrides sitting between
// the named style and run-local overrides.
type Paragraph struct {
	StyleName string
	Attrs     style.Attrs
	Runs      []*Run
}

// ListItem is a paragraph with a list kind and a 1-based nesting level.
type ListItem struct {
	Level   int
	Ordered bool
	Para    Paragraph
}

// Table owns a rectangular grid of cells. Every row has the same number of
// columns at all times; mutations that would break that fail.
type Table struct {
	Rows [][]*Cell
}

// Cell owns its own block sequence, so tables may nest.
type Cell struct {
	Blocks []*Block
}

// RunKind distinguishes the run-level variants.
type RunKind string

const (
	RunText   RunKind = "text"
	RunImage  RunKind = "image"
	RunSymbol RunKind = "symbol"
	RunBreak  RunKind = "break" // explicit line break inside a paragraph
)

// Run is the atomic styled unit: a text span, an inline image reference, a
// special/math symbol glyph, or a line break marker. Attrs are the local
// style overrides; effective style comes from Registry.Resolve.
type Run struct {
	Kind     RunKind
	Text     string  // RunText
	ImageRef string  // RunImage, key into Document.Images
	Symbol   *Symbol // RunSymbol
	Attrs    style.Attrs
}

// SymbolClass groups the special glyph palettes of the editor.
type SymbolClass string

const (
	SymbolMath  SymbolClass = "math"
	SymbolGreek SymbolClass = "greek"
	SymbolArrow SymbolClass = "arrow"
	SymbolOther SymbolClass = "other"
)

// Symbol is a special or math glyph inserted from the symbol palette.
type Symbol struct {
	Glyph string // Unicode rendering, may be multi-rune
	Class SymbolClass
}

// ClassifySymbol derives the palette class of a glyph from its first rune.
func ClassifySymbol(glyph string) SymbolClass {
	for _, r := range glyph {
		switch {
		case r >= 0x0370 && r <= 0x03ff:
			return SymbolGreek
		case r >= 0x2190 && r <= 0x21ff:
			return SymbolArrow
		case r >= 0x2200 && r <= 0x22ff || r == '±' || r == '×' || r == '÷':
			return SymbolMath
		}
		break
	}
	return SymbolOther
}

// New creates an empty document with fresh metadata and an empty style
// registry.
func New() *Document {
	now := time.Now()
	return &Document{
		Meta: Meta{
			ID:          uuid.NewString(),
			Application: "OpenLautrec",
			Created:     now,
			Modified:    now,
			Page:        DefaultPageSetup(),
		},
		Styles: style.NewRegistry(),
		Images: make(map[string]*ImageResource),
	}
}

// NewParagraphBlock wraps runs into a paragraph block.
func NewParagraphBlock(styleName string, runs ...*Run) *Block {
	return &Block{Kind: BlockParagraph, Para: &Paragraph{StyleName: styleName, Runs: runs}}
}

// NewTextRun returns a plain text run with local overrides.
func NewTextRun(text string, attrs style.Attrs) *Run {
	return &Run{Kind: RunText, Text: text, Attrs: attrs}
}

// NewPageBreak returns a page break block.
func NewPageBreak() *Block {
	return &Block{Kind: BlockPageBreak}
}

// NewTable builds an empty rectangular table.
func NewTable(rows, cols int) *Table {
	t := &Table{Rows: make([][]*Cell, rows)}
	for i := range t.Rows {
		t.Rows[i] = make([]*Cell, cols)
		for j := range t.Rows[i] {
			t.Rows[i][j] = &Cell{}
		}
	}
	return t
}

// Cols returns the column count, zero for an empty table.
func (t *Table) Cols() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Paragraph returns the paragraph payload of a block regardless of whether
// it is a plain paragraph or a list item, nil otherwise.
func (b *Block) Paragraph() *Paragraph {
	switch b.Kind {
	case BlockParagraph:
		return b.Para
	case BlockListItem:
		if b.List != nil {
			return &b.List.Para
		}
	}
	return nil
}

// Resolve computes the effective style of a run inside its paragraph:
// run-local overrides over paragraph overrides over the paragraph named
// style over the document default.
func (d *Document) Resolve(p *Paragraph, r *Run) style.Attrs {
	local := r.Attrs
	if !p.Attrs.IsZero() {
		local = style.Overlay(r.Attrs, p.Attrs)
	}
	return d.Styles.Resolve(local, p.StyleName)
}

// Touch updates the modification timestamp.
func (d *Document) Touch() {
	d.Meta.Modified = time.Now()
}
