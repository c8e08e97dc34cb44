package style

// Formatting attribute sets for the document model.
//
// Attrs is deliberately sparse: a nil field means "not set here, inherit".
// Effective formatting for a run is always computed by overlaying sparse
// sets in a fixed order, see Registry.Resolve.

// Alignment of a paragraph.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignRight   Alignment = "right"
	AlignCenter  Alignment = "center"
	AlignJustify Alignment = "justify"
)

// ParseAlignment maps free-form alignment names (CSS values, OOXML w:jc
// values, ODF fo:text-align values) to the model vocabulary.
func ParseAlignment(in string) (Alignment, bool) {
	switch in {
	case "left", "start":
		return AlignLeft, true
	case "right", "end":
		return AlignRight, true
	case "center":
		return AlignCenter, true
	case "justify", "both":
		return AlignJustify, true
	}
	return "", false
}

// Attrs is a sparse set of formatting attributes. Nil pointer fields are
// absent and fall through to the next layer during resolution.
type Attrs struct {
	FontFamily *string
	SizePt     *float64
	Bold       *bool
	Italic     *bool
	Underline  *bool
	Strike     *bool
	Color      *string // #rrggbb
	Background *string // #rrggbb
	Alignment  *Alignment
	// Lang is a BCP-47 tag used by the speech readback collaborator.
	Lang *string
	// LetterSpacingPt and LineSpacing are rendering hints, primarily for
	// the dyslexia-friendly display mode.
	LetterSpacingPt *float64
	LineSpacing     *float64
}

// Pointer constructors, so call sites can build sparse sets inline.

func String(v string) *string      { return &v }
func Float(v float64) *float64     { return &v }
func Bool(v bool) *bool            { return &v }
func Align(v Alignment) *Alignment { return &v }

// IsZero reports whether no attribute is set.
func (a Attrs) IsZero() bool {
	return a.FontFamily == nil && a.SizePt == nil && a.Bold == nil &&
		a.Italic == nil && a.Underline == nil && a.Strike == nil &&
		a.Color == nil && a.Background == nil && a.Alignment == nil &&
		a.Lang == nil && a.LetterSpacingPt == nil && a.LineSpacing == nil
}

// Overlay returns a copy of under with every attribute present in over
// replaced by the value from over. Neither argument is modified.
func Overlay(over, under Attrs) Attrs {
	out := under.Clone()
	if over.FontFamily != nil {
		out.FontFamily = String(*over.FontFamily)
	}
	if over.SizePt != nil {
		out.SizePt = Float(*over.SizePt)
	}
	if over.Bold != nil {
		out.Bold = Bool(*over.Bold)
	}
	if over.Italic != nil {
		out.Italic = Bool(*over.Italic)
	}
	if over.Underline != nil {
		out.Underline = Bool(*over.Underline)
	}
	if over.Strike != nil {
		out.Strike = Bool(*over.Strike)
	}
	if over.Color != nil {
		out.Color = String(*over.Color)
	}
	if over.Background != nil {
		out.Background = String(*over.Background)
	}
	if over.Alignment != nil {
		out.Alignment = Align(*over.Alignment)
	}
	if over.Lang != nil {
		out.Lang = String(*over.Lang)
	}
	if over.LetterSpacingPt != nil {
		out.LetterSpacingPt = Float(*over.LetterSpacingPt)
	}
	if over.LineSpacing != nil {
		out.LineSpacing = Float(*over.LineSpacing)
	}
	return out
}

// Clone returns a deep copy.
func (a Attrs) Clone() Attrs {
	return Overlay(a, Attrs{})
}

// Equal compares attribute sets field by field, treating absent and present
// as distinct.
func (a Attrs) Equal(b Attrs) bool {
	return eqString(a.FontFamily, b.FontFamily) &&
		eqFloat(a.SizePt, b.SizePt) &&
		eqBool(a.Bold, b.Bold) &&
		eqBool(a.Italic, b.Italic) &&
		eqBool(a.Underline, b.Underline) &&
		eqBool(a.Strike, b.Strike) &&
		eqString(a.Color, b.Color) &&
		eqString(a.Background, b.Background) &&
		eqAlign(a.Alignment, b.Alignment) &&
		eqString(a.Lang, b.Lang) &&
		eqFloat(a.LetterSpacingPt, b.LetterSpacingPt) &&
		eqFloat(a.LineSpacing, b.LineSpacing)
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqAlign(a, b *Alignment) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
