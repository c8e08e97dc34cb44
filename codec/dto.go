package codec

import (
	"fmt"
	"time"

	"olc/doc"
	"olc/style"
)

// Serialized form of the document tree. The payload is Amazon Ion, which is
// self-describing: every node carries its kind tag and only the fields it
// uses, so older readers can reject unknown structure cleanly instead of
// misreading it.

type fileBody struct {
	Application string    `ion:"application"`
	DocumentID  string    `ion:"documentId"`
	Created     time.Time `ion:"created"`
	Modified    time.Time `ion:"modified"`
	Lang        string    `ion:"lang"`
	ReadingAid  bool      `ion:"readingAid"`
	Page        pageDTO   `ion:"page"`

	DefaultStyle attrsDTO   `ion:"defaultStyle"`
	Styles       []styleDTO `ion:"styles"`
	Blocks       []blockDTO `ion:"blocks"`
	Images       []imageDTO `ion:"images"`

	WordCount int `ion:"wordCount"`
	CharCount int `ion:"charCount"`
}

type pageDTO struct {
	WidthPt  float64 `ion:"widthPt"`
	HeightPt float64 `ion:"heightPt"`
	MarginPt float64 `ion:"marginPt"`
}

type styleDTO struct {
	Name   string   `ion:"name"`
	Parent string   `ion:"parent"`
	Attrs  attrsDTO `ion:"attrs"`
}

type attrsDTO struct {
	FontFamily      *string  `ion:"fontFamily"`
	SizePt          *float64 `ion:"sizePt"`
	Bold            *bool    `ion:"bold"`
	Italic          *bool    `ion:"italic"`
	Underline       *bool    `ion:"underline"`
	Strike          *bool    `ion:"strike"`
	Color           *string  `ion:"color"`
	Background      *string  `ion:"background"`
	Alignment       *string  `ion:"alignment"`
	Lang            *string  `ion:"lang"`
	LetterSpacingPt *float64 `ion:"letterSpacingPt"`
	LineSpacing     *float64 `ion:"lineSpacing"`
}

type blockDTO struct {
	Kind  string    `ion:"kind"`
	Para  *paraDTO  `ion:"para"`
	Table *tableDTO `ion:"table"`
	List  *listDTO  `ion:"list"`
}

type paraDTO struct {
	Style string   `ion:"style"`
	Attrs attrsDTO `ion:"attrs"`
	Runs  []runDTO `ion:"runs"`
}

type listDTO struct {
	Level   int     `ion:"level"`
	Ordered bool    `ion:"ordered"`
	Para    paraDTO `ion:"para"`
}

type tableDTO struct {
	Rows [][]cellDTO `ion:"rows"`
}

type cellDTO struct {
	Blocks []blockDTO `ion:"blocks"`
}

type runDTO struct {
	Kind     string   `ion:"kind"`
	Text     string   `ion:"text"`
	ImageRef string   `ion:"imageRef"`
	Glyph    string   `ion:"glyph"`
	Class    string   `ion:"class"`
	Attrs    attrsDTO `ion:"attrs"`
}

type imageDTO struct {
	Name   string `ion:"name"`
	MIME   string `ion:"mime"`
	Width  int    `ion:"width"`
	Height int    `ion:"height"`
	Data   []byte `ion:"data"`
}

func bodyFromDocument(d *doc.Document) fileBody {
	body := fileBody{
		Application: d.Meta.Application,
		DocumentID:  d.Meta.ID,
		Created:     d.Meta.Created,
		Modified:    d.Meta.Modified,
		Lang:        d.Meta.Lang,
		ReadingAid:  d.Meta.ReadingAid,
		Page: pageDTO{
			WidthPt:  d.Meta.Page.WidthPt,
			HeightPt: d.Meta.Page.HeightPt,
			MarginPt: d.Meta.Page.MarginPt,
		},
		DefaultStyle: attrsToDTO(d.Styles.Default()),
		Blocks:       blocksToDTO(d.Blocks),
		WordCount:    d.WordCount(),
		CharCount:    d.CharCount(),
	}
	for _, name := range d.Styles.Names() {
		named, _ := d.Styles.Lookup(name)
		body.Styles = append(body.Styles, styleDTO{
			Name:   named.Name,
			Parent: named.Parent,
			Attrs:  attrsToDTO(named.Attrs),
		})
	}
	// Stable image order keeps encode deterministic for round-trip tests.
	for _, name := range sortedImageNames(d.Images) {
		img := d.Images[name]
		body.Images = append(body.Images, imageDTO{
			Name:   img.Name,
			MIME:   img.MIME,
			Width:  img.Width,
			Height: img.Height,
			Data:   img.Data,
		})
	}
	return body
}

func (body *fileBody) toDocument() (*doc.Document, error) {
	d := doc.New()
	d.Meta.Application = body.Application
	if body.DocumentID != "" {
		d.Meta.ID = body.DocumentID
	}
	if !body.Created.IsZero() {
		d.Meta.Created = body.Created
	}
	if !body.Modified.IsZero() {
		d.Meta.Modified = body.Modified
	}
	d.Meta.Lang = body.Lang
	d.Meta.ReadingAid = body.ReadingAid
	if body.Page != (pageDTO{}) {
		d.Meta.Page = doc.PageSetup{
			WidthPt:  body.Page.WidthPt,
			HeightPt: body.Page.HeightPt,
			MarginPt: body.Page.MarginPt,
		}
	}
	d.Styles.SetDefault(body.DefaultStyle.toAttrs())
	for _, s := range body.Styles {
		if err := d.Styles.Define(s.Name, s.Attrs.toAttrs(), s.Parent); err != nil {
			return nil, corrupt(fmt.Sprintf("style %q", s.Name), err)
		}
	}
	for _, img := range body.Images {
		if img.Name == "" {
			return nil, corrupt("image resource without name", nil)
		}
		d.Images[img.Name] = &doc.ImageResource{
			Name:   img.Name,
			MIME:   img.MIME,
			Width:  img.Width,
			Height: img.Height,
			Data:   img.Data,
		}
	}
	blocks, err := blocksFromDTO(body.Blocks)
	if err != nil {
		return nil, err
	}
	d.Blocks = blocks
	if err := validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

func blocksToDTO(blocks []*doc.Block) []blockDTO {
	out := make([]blockDTO, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, blockToDTO(b))
	}
	return out
}

func blockToDTO(b *doc.Block) blockDTO {
	dto := blockDTO{Kind: string(b.Kind)}
	switch b.Kind {
	case doc.BlockParagraph:
		p := paraToDTO(b.Para)
		dto.Para = &p
	case doc.BlockListItem:
		dto.List = &listDTO{
			Level:   b.List.Level,
			Ordered: b.List.Ordered,
			Para:    paraToDTO(&b.List.Para),
		}
	case doc.BlockTable:
		t := tableDTO{Rows: make([][]cellDTO, len(b.Table.Rows))}
		for ri, row := range b.Table.Rows {
			t.Rows[ri] = make([]cellDTO, len(row))
			for ci, cell := range row {
				t.Rows[ri][ci] = cellDTO{Blocks: blocksToDTO(cell.Blocks)}
			}
		}
		dto.Table = &t
	}
	return dto
}

func paraToDTO(p *doc.Paragraph) paraDTO {
	dto := paraDTO{Style: p.StyleName, Attrs: attrsToDTO(p.Attrs)}
	for _, r := range p.Runs {
		rd := runDTO{Kind: string(r.Kind), Text: r.Text, ImageRef: r.ImageRef, Attrs: attrsToDTO(r.Attrs)}
		if r.Symbol != nil {
			rd.Glyph = r.Symbol.Glyph
			rd.Class = string(r.Symbol.Class)
		}
		dto.Runs = append(dto.Runs, rd)
	}
	return dto
}

func blocksFromDTO(dtos []blockDTO) ([]*doc.Block, error) {
	var out []*doc.Block
	for i, dto := range dtos {
		b, err := blockFromDTO(dto)
		if err != nil {
			return nil, corrupt(fmt.Sprintf("block %d", i), err)
		}
		out = append(out, b)
	}
	return out, nil
}

func blockFromDTO(dto blockDTO) (*doc.Block, error) {
	switch doc.BlockKind(dto.Kind) {
	case doc.BlockParagraph:
		if dto.Para == nil {
			return nil, fmt.Errorf("paragraph block without payload")
		}
		p, err := paraFromDTO(*dto.Para)
		if err != nil {
			return nil, err
		}
		return &doc.Block{Kind: doc.BlockParagraph, Para: p}, nil
	case doc.BlockListItem:
		if dto.List == nil {
			return nil, fmt.Errorf("list item block without payload")
		}
		p, err := paraFromDTO(dto.List.Para)
		if err != nil {
			return nil, err
		}
		return &doc.Block{Kind: doc.BlockListItem, List: &doc.ListItem{
			Level:   dto.List.Level,
			Ordered: dto.List.Ordered,
			Para:    *p,
		}}, nil
	case doc.BlockTable:
		if dto.Table == nil {
			return nil, fmt.Errorf("table block without payload")
		}
		t := &doc.Table{Rows: make([][]*doc.Cell, len(dto.Table.Rows))}
		for ri, row := range dto.Table.Rows {
			t.Rows[ri] = make([]*doc.Cell, len(row))
			for ci, cell := range row {
				blocks, err := blocksFromDTO(cell.Blocks)
				if err != nil {
					return nil, err
				}
				t.Rows[ri][ci] = &doc.Cell{Blocks: blocks}
			}
		}
		return &doc.Block{Kind: doc.BlockTable, Table: t}, nil
	case doc.BlockPageBreak:
		return doc.NewPageBreak(), nil
	default:
		return nil, fmt.Errorf("unknown block kind %q", dto.Kind)
	}
}

func paraFromDTO(dto paraDTO) (*doc.Paragraph, error) {
	p := &doc.Paragraph{StyleName: dto.Style, Attrs: dto.Attrs.toAttrs()}
	for i, rd := range dto.Runs {
		r := &doc.Run{Kind: doc.RunKind(rd.Kind), Text: rd.Text, ImageRef: rd.ImageRef, Attrs: rd.Attrs.toAttrs()}
		switch r.Kind {
		case doc.RunText:
			if r.Text == "" {
				return nil, fmt.Errorf("run %d: empty text span", i)
			}
		case doc.RunImage:
			if r.ImageRef == "" {
				return nil, fmt.Errorf("run %d: image run without reference", i)
			}
		case doc.RunSymbol:
			if rd.Glyph == "" {
				return nil, fmt.Errorf("run %d: symbol run without glyph", i)
			}
			r.Symbol = &doc.Symbol{Glyph: rd.Glyph, Class: doc.SymbolClass(rd.Class)}
		case doc.RunBreak:
		default:
			return nil, fmt.Errorf("run %d: unknown run kind %q", i, rd.Kind)
		}
		p.Runs = append(p.Runs, r)
	}
	return p, nil
}

func attrsToDTO(a style.Attrs) attrsDTO {
	dto := attrsDTO{
		FontFamily:      a.FontFamily,
		SizePt:          a.SizePt,
		Bold:            a.Bold,
		Italic:          a.Italic,
		Underline:       a.Underline,
		Strike:          a.Strike,
		Color:           a.Color,
		Background:      a.Background,
		Lang:            a.Lang,
		LetterSpacingPt: a.LetterSpacingPt,
		LineSpacing:     a.LineSpacing,
	}
	if a.Alignment != nil {
		dto.Alignment = style.String(string(*a.Alignment))
	}
	return dto
}

func (dto attrsDTO) toAttrs() style.Attrs {
	a := style.Attrs{
		FontFamily:      dto.FontFamily,
		SizePt:          dto.SizePt,
		Bold:            dto.Bold,
		Italic:          dto.Italic,
		Underline:       dto.Underline,
		Strike:          dto.Strike,
		Color:           dto.Color,
		Background:      dto.Background,
		Lang:            dto.Lang,
		LetterSpacingPt: dto.LetterSpacingPt,
		LineSpacing:     dto.LineSpacing,
	}
	if dto.Alignment != nil {
		a.Alignment = style.Align(style.Alignment(*dto.Alignment))
	}
	return a
}
