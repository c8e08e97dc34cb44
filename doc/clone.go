package doc

// Clone returns a deep copy of the document. Conversions operate on such a
// snapshot so in-flight exports never observe concurrent UI edits.
func (d *Document) Clone() *Document {
	out := &Document{
		Meta:   d.Meta,
		Styles: d.Styles.Clone(),
		Blocks: cloneBlocks(d.Blocks),
		Images: make(map[string]*ImageResource, len(d.Images)),
	}
	for name, img := range d.Images {
		data := make([]byte, len(img.Data))
		copy(data, img.Data)
		out.Images[name] = &ImageResource{
			Name:   img.Name,
			MIME:   img.MIME,
			Data:   data,
			Width:  img.Width,
			Height: img.Height,
		}
	}
	return out
}

func cloneBlocks(blocks []*Block) []*Block {
	if blocks == nil {
		return nil
	}
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = cloneBlock(b)
	}
	return out
}

func cloneBlock(b *Block) *Block {
	out := &Block{Kind: b.Kind}
	switch b.Kind {
	case BlockParagraph:
		p := cloneParagraph(b.Para)
		out.Para = &p
	case BlockListItem:
		out.List = &ListItem{
			Level:   b.List.Level,
			Ordered: b.List.Ordered,
			Para:    cloneParagraph(&b.List.Para),
		}
	case BlockTable:
		t := &Table{Rows: make([][]*Cell, len(b.Table.Rows))}
		for ri, row := range b.Table.Rows {
			t.Rows[ri] = make([]*Cell, len(row))
			for ci, cell := range row {
				t.Rows[ri][ci] = &Cell{Blocks: cloneBlocks(cell.Blocks)}
			}
		}
		out.Table = t
	case BlockPageBreak:
	}
	return out
}

func cloneParagraph(p *Paragraph) Paragraph {
	out := Paragraph{StyleName: p.StyleName, Attrs: p.Attrs.Clone()}
	if p.Runs != nil {
		out.Runs = make([]*Run, len(p.Runs))
		for i, r := range p.Runs {
			out.Runs[i] = cloneRun(r)
		}
	}
	return out
}

func cloneRun(r *Run) *Run {
	out := &Run{Kind: r.Kind, Text: r.Text, ImageRef: r.ImageRef, Attrs: r.Attrs.Clone()}
	if r.Symbol != nil {
		out.Symbol = &Symbol{Glyph: r.Symbol.Glyph, Class: r.Symbol.Class}
	}
	return out
}
