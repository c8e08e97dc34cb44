package docx

import "strings"

// WordprocessingML highlighting is restricted to a fixed palette addressed
// by name. Background colors are matched against it on export; anything off
// palette falls back to a shading fill.
var highlightColors = map[string]string{
	"black":       "#000000",
	"blue":        "#0000ff",
	"cyan":        "#00ffff",
	"green":       "#00ff00",
	"magenta":     "#ff00ff",
	"red":         "#ff0000",
	"yellow":      "#ffff00",
	"white":       "#ffffff",
	"darkBlue":    "#000080",
	"darkCyan":    "#008080",
	"darkGreen":   "#008000",
	"darkMagenta": "#800080",
	"darkRed":     "#800000",
	"darkYellow":  "#808000",
	"darkGray":    "#808080",
	"lightGray":   "#c0c0c0",
}

// highlightName returns the palette name for a hex color, if it is on the
// palette.
func highlightName(hex string) (string, bool) {
	hex = strings.ToLower(hex)
	for name, c := range highlightColors {
		if c == hex {
			return name, true
		}
	}
	return "", false
}

// highlightHex resolves a palette name back to its hex color.
func highlightHex(name string) (string, bool) {
	c, ok := highlightColors[name]
	return c, ok
}
