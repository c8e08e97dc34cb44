package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"olc/style"
)

// WordprocessingML namespace prefixes used throughout the package. Elements
// are matched by prefixed tag the way the files are conventionally written;
// documents produced by the major editors all use these prefixes.
const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	nsRelPkg   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT       = "http://schemas.openxmlformats.org/package/2006/content-types"
	relOfficeD = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relNumber  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	relImage   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

const (
	twipsPerPoint     = 20
	emusPerPoint      = 12700
	lineUnitsPerWhole = 240
)

func wVal(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("w:val", "")
}

// runAttrsFromRPr maps a w:rPr element to character attributes.
func runAttrsFromRPr(rPr *etree.Element) style.Attrs {
	var a style.Attrs
	if rPr == nil {
		return a
	}
	if el := rPr.SelectElement("w:rFonts"); el != nil {
		if f := el.SelectAttrValue("w:ascii", ""); f != "" {
			a.FontFamily = style.String(f)
		}
	}
	if el := rPr.SelectElement("w:sz"); el != nil {
		if half, err := strconv.ParseFloat(wVal(el), 64); err == nil {
			a.SizePt = style.Float(half / 2)
		}
	}
	if el := rPr.SelectElement("w:b"); el != nil {
		a.Bold = style.Bool(onOff(wVal(el)))
	}
	if el := rPr.SelectElement("w:i"); el != nil {
		a.Italic = style.Bool(onOff(wVal(el)))
	}
	if el := rPr.SelectElement("w:u"); el != nil {
		a.Underline = style.Bool(wVal(el) != "none")
	}
	if el := rPr.SelectElement("w:strike"); el != nil {
		a.Strike = style.Bool(onOff(wVal(el)))
	}
	if el := rPr.SelectElement("w:color"); el != nil {
		if v := wVal(el); v != "" && v != "auto" {
			a.Color = style.String("#" + strings.ToLower(v))
		}
	}
	if el := rPr.SelectElement("w:highlight"); el != nil {
		if hex, ok := highlightHex(wVal(el)); ok {
			a.Background = style.String(hex)
		}
	} else if el := rPr.SelectElement("w:shd"); el != nil {
		if fill := el.SelectAttrValue("w:fill", ""); fill != "" && fill != "auto" {
			a.Background = style.String("#" + strings.ToLower(fill))
		}
	}
	if el := rPr.SelectElement("w:spacing"); el != nil {
		if tw, err := strconv.ParseFloat(wVal(el), 64); err == nil {
			a.LetterSpacingPt = style.Float(tw / twipsPerPoint)
		}
	}
	if el := rPr.SelectElement("w:lang"); el != nil {
		if v := wVal(el); v != "" {
			a.Lang = style.String(v)
		}
	}
	return a
}

// paraAttrsFromPPr maps a w:pPr element to paragraph-level attributes.
func paraAttrsFromPPr(pPr *etree.Element) style.Attrs {
	var a style.Attrs
	if pPr == nil {
		return a
	}
	if el := pPr.SelectElement("w:jc"); el != nil {
		if al, ok := style.ParseAlignment(wVal(el)); ok {
			a.Alignment = style.Align(al)
		}
	}
	if el := pPr.SelectElement("w:spacing"); el != nil {
		if line := el.SelectAttrValue("w:line", ""); line != "" {
			if v, err := strconv.ParseFloat(line, 64); err == nil && v > 0 {
				a.LineSpacing = style.Float(v / lineUnitsPerWhole)
			}
		}
	}
	return style.Overlay(a, runAttrsFromRPr(pPr.SelectElement("w:rPr")))
}

// writeRPr emits a w:rPr for the attributes, omitting the element entirely
// when nothing is set.
func writeRPr(parent *etree.Element, a style.Attrs) {
	if a.IsZero() || onlyParagraphAttrs(a) {
		return
	}
	rPr := parent.CreateElement("w:rPr")
	if a.FontFamily != nil {
		el := rPr.CreateElement("w:rFonts")
		el.CreateAttr("w:ascii", *a.FontFamily)
		el.CreateAttr("w:hAnsi", *a.FontFamily)
	}
	if a.Bold != nil && *a.Bold {
		rPr.CreateElement("w:b")
	}
	if a.Italic != nil && *a.Italic {
		rPr.CreateElement("w:i")
	}
	if a.Underline != nil && *a.Underline {
		rPr.CreateElement("w:u").CreateAttr("w:val", "single")
	}
	if a.Strike != nil && *a.Strike {
		rPr.CreateElement("w:strike")
	}
	if a.Color != nil {
		rPr.CreateElement("w:color").CreateAttr("w:val", hexVal(*a.Color))
	}
	if a.Background != nil {
		if name, ok := highlightName(*a.Background); ok {
			rPr.CreateElement("w:highlight").CreateAttr("w:val", name)
		} else {
			shd := rPr.CreateElement("w:shd")
			shd.CreateAttr("w:val", "clear")
			shd.CreateAttr("w:fill", hexVal(*a.Background))
		}
	}
	if a.SizePt != nil {
		rPr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(int(*a.SizePt*2)))
	}
	if a.LetterSpacingPt != nil {
		rPr.CreateElement("w:spacing").CreateAttr("w:val", strconv.Itoa(int(*a.LetterSpacingPt*twipsPerPoint)))
	}
	if a.Lang != nil {
		rPr.CreateElement("w:lang").CreateAttr("w:val", *a.Lang)
	}
	if len(rPr.ChildElements()) == 0 {
		parent.RemoveChild(rPr)
	}
}

// writePPr emits a w:pPr carrying style reference, numbering, alignment and
// line spacing.
func writePPr(parent *etree.Element, styleID string, numID, ilvl int, a style.Attrs) {
	pPr := parent.CreateElement("w:pPr")
	if styleID != "" {
		pPr.CreateElement("w:pStyle").CreateAttr("w:val", styleID)
	}
	if numID > 0 {
		numPr := pPr.CreateElement("w:numPr")
		numPr.CreateElement("w:ilvl").CreateAttr("w:val", strconv.Itoa(ilvl))
		numPr.CreateElement("w:numId").CreateAttr("w:val", strconv.Itoa(numID))
	}
	if a.Alignment != nil {
		pPr.CreateElement("w:jc").CreateAttr("w:val", string(*a.Alignment))
	}
	if a.LineSpacing != nil {
		sp := pPr.CreateElement("w:spacing")
		sp.CreateAttr("w:line", strconv.Itoa(int(*a.LineSpacing*lineUnitsPerWhole)))
		sp.CreateAttr("w:lineRule", "auto")
	}
	writeRPr(pPr, a)
	if len(pPr.ChildElements()) == 0 {
		parent.RemoveChild(pPr)
	}
}

// onlyParagraphAttrs reports whether the set carries nothing a w:rPr can
// express.
func onlyParagraphAttrs(a style.Attrs) bool {
	return a.FontFamily == nil && a.SizePt == nil && a.Bold == nil && a.Italic == nil &&
		a.Underline == nil && a.Strike == nil && a.Color == nil && a.Background == nil &&
		a.LetterSpacingPt == nil && a.Lang == nil
}

func onOff(v string) bool {
	switch v {
	case "", "1", "true", "on":
		return true
	}
	return false
}

func hexVal(color string) string {
	return strings.ToUpper(strings.TrimPrefix(color, "#"))
}
