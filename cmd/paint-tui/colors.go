package main

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/simbo/paintCSS/internal/paint"
)

var palette = []paint.Color{
	"#f00", "#0f0", "#00f", "#ff0", "#f0f", "#0ff", "#fff", "#000",
}

// toTcell converts a paint color to a terminal color. Hex values go through
// go-colorful; anything else is looked up by name.
func toTcell(c paint.Color) tcell.Color {
	s := strings.TrimSpace(string(c))
	if strings.HasPrefix(s, "#") {
		if len(s) == 4 {
			s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
		}
		col, err := colorful.Hex(s)
		if err != nil {
			return tcell.ColorDefault
		}
		r, g, b := col.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	}
	return tcell.GetColor(strings.ToLower(s))
}
