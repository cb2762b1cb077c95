// Command paint-tui paints on a grid in the terminal with the mouse.
//
// Keys 1-8 pick a palette color, c clears the grid, q or Esc quits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/simbo/paintCSS/internal/paint"
)

func main() {
	width := flag.Int("width", 40, "grid width in cells")
	height := flag.Int("height", 20, "grid height in cells")
	flag.Parse()

	if err := run(*width, *height); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(width, height int) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	// The screen owns the terminal.
	log := logrus.New()
	log.SetOutput(io.Discard)

	surface := newTerminalSurface(screen, 1, 2)
	engine, err := paint.New(paint.Overrides{
		CellSize:    1,
		GridWidth:   width,
		GridHeight:  height,
		Background:  "#222",
		BorderColor: "#888",
		BorderWidth: 1,
	}, paint.WithRenderer(surface), paint.WithLogger(logrus.NewEntry(log)))
	if err != nil {
		return err
	}
	release := engine.Attach(surface, surface)
	defer release()

	drawStatus(screen, engine.Settings().Color)
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventMouse:
			surface.handleMouse(ev)
		case *tcell.EventResize:
			screen.Sync()
			surface.draw()
			drawStatus(screen, engine.Settings().Color)
		case *tcell.EventKey:
			if !handleKey(engine, ev.Key(), ev.Rune()) {
				return nil
			}
			surface.draw()
			drawStatus(screen, engine.Settings().Color)
		case nil:
			return nil
		}
	}
}

// handleKey applies one key press and reports whether to keep running.
func handleKey(engine *paint.Engine, key tcell.Key, r rune) bool {
	if key == tcell.KeyEscape || key == tcell.KeyCtrlC {
		return false
	}
	if key != tcell.KeyRune {
		return true
	}
	switch {
	case r == 'q':
		return false
	case r == 'c':
		s := engine.Settings()
		// Same size is valid, so this cannot fail.
		_ = engine.SetCanvasSize(s.GridWidth, s.GridHeight)
	case r >= '1' && int(r-'1') < len(palette):
		engine.SetColor(palette[r-'1'])
	}
	return true
}

func drawStatus(screen tcell.Screen, current paint.Color) {
	text := "1-8 color  c clear  q quit   color: "
	for i, r := range text {
		screen.SetContent(1+i, 0, r, nil, tcell.StyleDefault)
	}
	screen.SetContent(1+len(text), 0, ' ', nil, tcell.StyleDefault.Background(toTcell(current)))
	screen.SetContent(2+len(text), 0, ' ', nil, tcell.StyleDefault.Background(toTcell(current)))
	screen.Show()
}
