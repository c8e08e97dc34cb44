// Package odt converts between documents and the OpenDocument text format.
// Like the docx side it works on the XML DOM directly; formatting travels
// through fo:/style: properties on automatic and named styles.
package odt

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"olc/style"
)

const (
	mimetypeODT = "application/vnd.oasis.opendocument.text"

	nsOffice   = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText     = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsStyle    = "urn:oasis:names:tc:opendocument:xmlns:style:1.0"
	nsFo       = "urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
	nsTable    = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsDraw     = "urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
	nsXlink    = "http://www.w3.org/1999/xlink"
	nsSvg      = "urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"
	nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"
)

// attrsFromProps reads style:text-properties and style:paragraph-properties
// children of a style:style element.
func attrsFromProps(styleEl *etree.Element) style.Attrs {
	var a style.Attrs
	if styleEl == nil {
		return a
	}
	if tp := styleEl.SelectElement("style:text-properties"); tp != nil {
		if v := tp.SelectAttrValue("style:font-name", ""); v != "" {
			a.FontFamily = style.String(v)
		}
		if v := tp.SelectAttrValue("fo:font-family", ""); v != "" {
			a.FontFamily = style.String(strings.Trim(v, `'"`))
		}
		if v := tp.SelectAttrValue("fo:font-size", ""); v != "" {
			if pt, ok := parsePt(v); ok {
				a.SizePt = style.Float(pt)
			}
		}
		if v := tp.SelectAttrValue("fo:font-weight", ""); v != "" {
			a.Bold = style.Bool(v == "bold" || atoiDefault(v) >= 600)
		}
		if v := tp.SelectAttrValue("fo:font-style", ""); v != "" {
			a.Italic = style.Bool(v == "italic" || v == "oblique")
		}
		if v := tp.SelectAttrValue("style:text-underline-style", ""); v != "" {
			a.Underline = style.Bool(v != "none")
		}
		if v := tp.SelectAttrValue("style:text-line-through-style", ""); v != "" {
			a.Strike = style.Bool(v != "none")
		}
		if v := tp.SelectAttrValue("fo:color", ""); v != "" {
			a.Color = style.String(strings.ToLower(v))
		}
		if v := tp.SelectAttrValue("fo:background-color", ""); v != "" && v != "transparent" {
			a.Background = style.String(strings.ToLower(v))
		}
		if v := tp.SelectAttrValue("fo:letter-spacing", ""); v != "" && v != "normal" {
			if pt, ok := parsePt(v); ok {
				a.LetterSpacingPt = style.Float(pt)
			}
		}
		if v := tp.SelectAttrValue("fo:language", ""); v != "" {
			a.Lang = style.String(v)
		}
	}
	if pp := styleEl.SelectElement("style:paragraph-properties"); pp != nil {
		if v := pp.SelectAttrValue("fo:text-align", ""); v != "" {
			if al, ok := style.ParseAlignment(v); ok {
				a.Alignment = style.Align(al)
			}
		}
		if v := pp.SelectAttrValue("fo:line-height", ""); strings.HasSuffix(v, "%") {
			if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64); err == nil {
				a.LineSpacing = style.Float(f / 100)
			}
		}
	}
	return a
}

// hasPageBreakBefore reports whether the style asks for a page break ahead
// of the paragraph it is applied to.
func hasPageBreakBefore(styleEl *etree.Element) bool {
	if styleEl == nil {
		return false
	}
	pp := styleEl.SelectElement("style:paragraph-properties")
	return pp != nil && pp.SelectAttrValue("fo:break-before", "") == "page"
}

// writeProps emits style:text-properties and style:paragraph-properties for
// the attribute set under a style:style element.
func writeProps(styleEl *etree.Element, a style.Attrs, breakBefore bool) {
	tp := styleEl.CreateElement("style:text-properties")
	if a.FontFamily != nil {
		tp.CreateAttr("style:font-name", *a.FontFamily)
		tp.CreateAttr("fo:font-family", *a.FontFamily)
	}
	if a.SizePt != nil {
		tp.CreateAttr("fo:font-size", trimFloat(*a.SizePt)+"pt")
	}
	if a.Bold != nil {
		if *a.Bold {
			tp.CreateAttr("fo:font-weight", "bold")
		} else {
			tp.CreateAttr("fo:font-weight", "normal")
		}
	}
	if a.Italic != nil {
		if *a.Italic {
			tp.CreateAttr("fo:font-style", "italic")
		} else {
			tp.CreateAttr("fo:font-style", "normal")
		}
	}
	if a.Underline != nil {
		if *a.Underline {
			tp.CreateAttr("style:text-underline-style", "solid")
		} else {
			tp.CreateAttr("style:text-underline-style", "none")
		}
	}
	if a.Strike != nil {
		if *a.Strike {
			tp.CreateAttr("style:text-line-through-style", "solid")
		} else {
			tp.CreateAttr("style:text-line-through-style", "none")
		}
	}
	if a.Color != nil {
		tp.CreateAttr("fo:color", *a.Color)
	}
	if a.Background != nil {
		tp.CreateAttr("fo:background-color", *a.Background)
	}
	if a.LetterSpacingPt != nil {
		tp.CreateAttr("fo:letter-spacing", trimFloat(*a.LetterSpacingPt)+"pt")
	}
	if a.Lang != nil {
		tp.CreateAttr("fo:language", *a.Lang)
	}
	if len(tp.Attr) == 0 {
		styleEl.RemoveChild(tp)
	}

	pp := styleEl.CreateElement("style:paragraph-properties")
	if a.Alignment != nil {
		pp.CreateAttr("fo:text-align", string(*a.Alignment))
	}
	if a.LineSpacing != nil {
		pp.CreateAttr("fo:line-height", trimFloat(*a.LineSpacing*100)+"%")
	}
	if breakBefore {
		pp.CreateAttr("fo:break-before", "page")
	}
	if len(pp.Attr) == 0 {
		styleEl.RemoveChild(pp)
	}
}

func parsePt(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasSuffix(v, "pt"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "pt"), 64)
		return f, err == nil
	case strings.HasSuffix(v, "cm"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "cm"), 64)
		return f * 72 / 2.54, err == nil
	case strings.HasSuffix(v, "in"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "in"), 64)
		return f * 72, err == nil
	}
	return 0, false
}

func atoiDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
