package paint

import (
	"strconv"
	"strings"
)

// Shadow is one entry of the compositing description: a point shadow cast
// at (OffsetX, OffsetY) relative to the layer element.
type Shadow struct {
	OffsetX float64 `json:"x"`
	OffsetY float64 `json:"y"`
	Color   Color   `json:"color"`
}

// Description is the ordered shadow list for every painted cell.
type Description []Shadow

// describe builds the description for g. The layer element sits one cell
// above and left of the visible origin, hence the +1 on both axes.
func describe(g *Grid, cellSize float64) Description {
	d := make(Description, 0, g.PaintedCount())
	for c := range g.PaintedCells() {
		d = append(d, Shadow{
			OffsetX: float64(c.X+1) * cellSize,
			OffsetY: float64(c.Y+1) * cellSize,
			Color:   c.Color,
		})
	}
	return d
}

// String renders the CSS box-shadow value. An empty description yields "".
func (d Description) String() string {
	if len(d) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatLength(s.OffsetX))
		b.WriteByte(' ')
		b.WriteString(formatLength(s.OffsetY))
		b.WriteByte(' ')
		b.WriteString(string(s.Color))
	}
	return b.String()
}

// Equal reports whether both descriptions hold the same entries in order.
func (d Description) Equal(other Description) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

func formatLength(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
