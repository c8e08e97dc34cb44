package html

import (
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"olc/style"
)

// parseInlineStyle maps a style="" attribute value to character and
// paragraph attributes. Unknown properties are collected so the caller can
// warn once per element instead of failing.
func parseInlineStyle(s string) (style.Attrs, []string) {
	var attrs style.Attrs
	var unknown []string

	p := css.NewParser(parse.NewInputString(s), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			break
		}
		if gt != css.DeclarationGrammar {
			continue
		}
		prop := strings.ToLower(string(data))
		val := joinValues(p.Values())
		switch prop {
		case "font-family":
			attrs.FontFamily = style.String(strings.Trim(val, `'"`))
		case "font-size":
			if pt, ok := parseSizePt(val); ok {
				attrs.SizePt = style.Float(pt)
			}
		case "font-weight":
			attrs.Bold = style.Bool(val == "bold" || val == "bolder" || atoiDefault(val) >= 600)
		case "font-style":
			attrs.Italic = style.Bool(val == "italic" || val == "oblique")
		case "text-decoration", "text-decoration-line":
			if strings.Contains(val, "underline") {
				attrs.Underline = style.Bool(true)
			}
			if strings.Contains(val, "line-through") {
				attrs.Strike = style.Bool(true)
			}
			if val == "none" {
				attrs.Underline = style.Bool(false)
				attrs.Strike = style.Bool(false)
			}
		case "color":
			attrs.Color = style.String(val)
		case "background-color", "background":
			attrs.Background = style.String(val)
		case "text-align":
			if a, ok := style.ParseAlignment(val); ok {
				attrs.Alignment = style.Align(a)
			}
		case "letter-spacing":
			if pt, ok := parseSizePt(val); ok {
				attrs.LetterSpacingPt = style.Float(pt)
			}
		case "line-height":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				attrs.LineSpacing = style.Float(f)
			}
		default:
			unknown = append(unknown, prop)
		}
	}
	return attrs, unknown
}

func joinValues(vals []css.Token) string {
	var sb strings.Builder
	for _, v := range vals {
		sb.Write(v.Data)
	}
	return strings.TrimSpace(sb.String())
}

// parseSizePt understands pt and px lengths; px are converted at the CSS
// reference ratio of 96px per 72pt.
func parseSizePt(val string) (float64, bool) {
	val = strings.ToLower(strings.TrimSpace(val))
	switch {
	case strings.HasSuffix(val, "pt"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(val, "pt"), 64)
		return f, err == nil
	case strings.HasSuffix(val, "px"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(val, "px"), 64)
		return f * 72 / 96, err == nil
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

// inlineStyle renders attributes back to a style="" value. Only set fields
// are emitted, in a fixed order so output is deterministic.
func inlineStyle(a style.Attrs) string {
	var parts []string
	if a.FontFamily != nil {
		parts = append(parts, "font-family:"+*a.FontFamily)
	}
	if a.SizePt != nil {
		parts = append(parts, "font-size:"+trimFloat(*a.SizePt)+"pt")
	}
	if a.Bold != nil {
		if *a.Bold {
			parts = append(parts, "font-weight:bold")
		} else {
			parts = append(parts, "font-weight:normal")
		}
	}
	if a.Italic != nil {
		if *a.Italic {
			parts = append(parts, "font-style:italic")
		} else {
			parts = append(parts, "font-style:normal")
		}
	}
	if deco := decoration(a); deco != "" {
		parts = append(parts, "text-decoration:"+deco)
	}
	if a.Color != nil {
		parts = append(parts, "color:"+*a.Color)
	}
	if a.Background != nil {
		parts = append(parts, "background-color:"+*a.Background)
	}
	if a.Alignment != nil {
		parts = append(parts, "text-align:"+string(*a.Alignment))
	}
	if a.LetterSpacingPt != nil {
		parts = append(parts, "letter-spacing:"+trimFloat(*a.LetterSpacingPt)+"pt")
	}
	if a.LineSpacing != nil {
		parts = append(parts, "line-height:"+trimFloat(*a.LineSpacing))
	}
	return strings.Join(parts, ";")
}

func decoration(a style.Attrs) string {
	var deco []string
	if a.Underline != nil && *a.Underline {
		deco = append(deco, "underline")
	}
	if a.Strike != nil && *a.Strike {
		deco = append(deco, "line-through")
	}
	if len(deco) == 0 {
		if (a.Underline != nil && !*a.Underline) || (a.Strike != nil && !*a.Strike) {
			return "none"
		}
		return ""
	}
	return strings.Join(deco, " ")
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
