package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/simbo/paintCSS/internal/paint"
)

// terminalSurface draws one engine into a tcell screen and feeds it mouse
// input. Each grid cell is one terminal column.
type terminalSurface struct {
	screen  tcell.Screen
	originX int
	originY int

	style       paint.Style
	description paint.Description
	handler     paint.PointerHandler
	pressed     bool
}

func newTerminalSurface(screen tcell.Screen, originX, originY int) *terminalSurface {
	return &terminalSurface{screen: screen, originX: originX, originY: originY}
}

func (t *terminalSurface) Subscribe(h paint.PointerHandler) func() {
	t.handler = h
	return func() {
		if t.handler == h {
			t.handler = nil
		}
	}
}

func (t *terminalSurface) Origin() paint.Point {
	return paint.Point{X: float64(t.originX), Y: float64(t.originY)}
}

func (t *terminalSurface) ApplyStyle(s paint.Style) {
	t.style = s
	t.draw()
}

func (t *terminalSurface) ApplyDescription(d paint.Description) {
	t.description = d
	t.draw()
}

// handleMouse turns button-1 press, drag and release into pointer events.
func (t *terminalSurface) handleMouse(ev *tcell.EventMouse) {
	if t.handler == nil {
		return
	}
	x, y := ev.Position()
	down := ev.Buttons()&tcell.Button1 != 0
	switch {
	case down && !t.pressed:
		t.pressed = true
		t.handler.PointerDown(float64(x), float64(y))
	case down:
		t.handler.PointerMove(float64(x), float64(y))
	case t.pressed:
		t.pressed = false
		t.handler.PointerUp()
	}
}

func (t *terminalSurface) draw() {
	if t.screen == nil {
		return
	}
	t.screen.Clear()

	bw := int(t.style.BorderWidth)
	w, h := int(t.style.Width), int(t.style.Height)
	cell := t.style.CellSize
	if cell <= 0 {
		cell = 1
	}

	border := tcell.StyleDefault.Foreground(toTcell(paint.Color(t.style.BorderColor)))
	bg := tcell.StyleDefault.Background(toTcell(paint.Color(t.style.Background)))
	x0, y0 := t.originX, t.originY
	for y := 0; y < h+2*bw; y++ {
		for x := 0; x < w+2*bw; x++ {
			inside := x >= bw && x < w+bw && y >= bw && y < h+bw
			if inside {
				t.screen.SetContent(x0+x, y0+y, ' ', nil, bg)
			} else {
				t.screen.SetContent(x0+x, y0+y, borderRune(x, y, w+2*bw, h+2*bw), nil, border)
			}
		}
	}

	// Shadow offsets are one cell past the painted cell.
	for _, s := range t.description {
		cx := x0 + bw + int(s.OffsetX/cell) - 1
		cy := y0 + bw + int(s.OffsetY/cell) - 1
		t.screen.SetContent(cx, cy, ' ', nil, tcell.StyleDefault.Background(toTcell(s.Color)))
	}
	t.screen.Show()
}

func borderRune(x, y, w, h int) rune {
	switch {
	case (x == 0 || x == w-1) && (y == 0 || y == h-1):
		return '+'
	case y == 0 || y == h-1:
		return '-'
	default:
		return '|'
	}
}
