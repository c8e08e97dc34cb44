package doc

import (
	"bytes"
	"fmt"
)

// Structural equality and diff over two documents: tree shape plus
// attribute values. Metadata timestamps and IDs are excluded since they
// change on every edit; round-trip tests compare content, not clocks.

// Equal reports structural equality of two documents.
func Equal(a, b *Document) bool {
	return Diff(a, b) == ""
}

// Diff returns an empty string when the documents are structurally equal,
// otherwise a short description of the first difference found.
func Diff(a, b *Document) string {
	if a == nil || b == nil {
		if a == b {
			return ""
		}
		return "one document is nil"
	}
	if a.Meta.Lang != b.Meta.Lang {
		return fmt.Sprintf("meta.lang: %q != %q", a.Meta.Lang, b.Meta.Lang)
	}
	if a.Meta.Page != b.Meta.Page {
		return fmt.Sprintf("meta.page: %+v != %+v", a.Meta.Page, b.Meta.Page)
	}
	if a.Meta.ReadingAid != b.Meta.ReadingAid {
		return "meta.readingAid differs"
	}
	if !a.Styles.Equal(b.Styles) {
		return "style registry differs"
	}
	if len(a.Images) != len(b.Images) {
		return fmt.Sprintf("image count: %d != %d", len(a.Images), len(b.Images))
	}
	for name, ai := range a.Images {
		bi, ok := b.Images[name]
		if !ok {
			return fmt.Sprintf("image %q missing", name)
		}
		if ai.MIME != bi.MIME || !bytes.Equal(ai.Data, bi.Data) {
			return fmt.Sprintf("image %q differs", name)
		}
	}
	return diffBlocks(a.Blocks, b.Blocks, "blocks")
}

func diffBlocks(a, b []*Block, path string) string {
	if len(a) != len(b) {
		return fmt.Sprintf("%s: length %d != %d", path, len(a), len(b))
	}
	for i := range a {
		if d := diffBlock(a[i], b[i], fmt.Sprintf("%s[%d]", path, i)); d != "" {
			return d
		}
	}
	return ""
}

func diffBlock(a, b *Block, path string) string {
	if a.Kind != b.Kind {
		return fmt.Sprintf("%s: kind %q != %q", path, a.Kind, b.Kind)
	}
	switch a.Kind {
	case BlockParagraph:
		return diffParagraph(a.Para, b.Para, path)
	case BlockListItem:
		if a.List.Level != b.List.Level || a.List.Ordered != b.List.Ordered {
			return fmt.Sprintf("%s: list shape differs", path)
		}
		return diffParagraph(&a.List.Para, &b.List.Para, path)
	case BlockTable:
		if len(a.Table.Rows) != len(b.Table.Rows) {
			return fmt.Sprintf("%s: row count %d != %d", path, len(a.Table.Rows), len(b.Table.Rows))
		}
		for ri := range a.Table.Rows {
			ar, br := a.Table.Rows[ri], b.Table.Rows[ri]
			if len(ar) != len(br) {
				return fmt.Sprintf("%s: row %d cell count %d != %d", path, ri, len(ar), len(br))
			}
			for ci := range ar {
				cellPath := fmt.Sprintf("%s.rows[%d][%d].blocks", path, ri, ci)
				if d := diffBlocks(ar[ci].Blocks, br[ci].Blocks, cellPath); d != "" {
					return d
				}
			}
		}
	case BlockPageBreak:
	}
	return ""
}

func diffParagraph(a, b *Paragraph, path string) string {
	if a.StyleName != b.StyleName {
		return fmt.Sprintf("%s: style %q != %q", path, a.StyleName, b.StyleName)
	}
	if !a.Attrs.Equal(b.Attrs) {
		return fmt.Sprintf("%s: paragraph attrs differ", path)
	}
	if len(a.Runs) != len(b.Runs) {
		return fmt.Sprintf("%s: run count %d != %d", path, len(a.Runs), len(b.Runs))
	}
	for i := range a.Runs {
		ar, br := a.Runs[i], b.Runs[i]
		runPath := fmt.Sprintf("%s.runs[%d]", path, i)
		if ar.Kind != br.Kind {
			return fmt.Sprintf("%s: kind %q != %q", runPath, ar.Kind, br.Kind)
		}
		if ar.Text != br.Text {
			return fmt.Sprintf("%s: text %q != %q", runPath, ar.Text, br.Text)
		}
		if ar.ImageRef != br.ImageRef {
			return fmt.Sprintf("%s: image ref %q != %q", runPath, ar.ImageRef, br.ImageRef)
		}
		if (ar.Symbol == nil) != (br.Symbol == nil) {
			return fmt.Sprintf("%s: symbol presence differs", runPath)
		}
		if ar.Symbol != nil && *ar.Symbol != *br.Symbol {
			return fmt.Sprintf("%s: symbol differs", runPath)
		}
		if !ar.Attrs.Equal(br.Attrs) {
			return fmt.Sprintf("%s: attrs differ", runPath)
		}
	}
	return ""
}
