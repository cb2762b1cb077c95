package paint

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// Point is a position in page coordinates, in the same unit as CellSize.
type Point struct {
	X, Y float64
}

// Style is the styling a renderer applies to the surface and layer elements.
type Style struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	CellSize    float64 `json:"cell_size"`
	Background  string  `json:"background"`
	BorderColor string  `json:"border_color"`
	BorderWidth float64 `json:"border_width"`
	BorderStyle string  `json:"border_style"`
}

// Renderer consumes the engine output. ApplyStyle runs at setup and after
// every setter; ApplyDescription runs whenever the grid changes.
type Renderer interface {
	ApplyStyle(Style)
	ApplyDescription(Description)
}

// Geometry reports where the surface box currently sits on the page.
type Geometry interface {
	Origin() Point
}

// GeometryFunc adapts a function to Geometry.
type GeometryFunc func() Point

func (f GeometryFunc) Origin() Point { return f() }

// PointerHandler receives pointer events in page coordinates.
type PointerHandler interface {
	PointerDown(pageX, pageY float64)
	PointerMove(pageX, pageY float64)
	PointerUp()
}

// PointerSource delivers pointer events to one subscribed handler until the
// returned function is called.
type PointerSource interface {
	Subscribe(h PointerHandler) (unsubscribe func())
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer sets the rendering collaborator.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithGeometry sets the geometry collaborator used before the first Attach.
func WithGeometry(g Geometry) Option {
	return func(e *Engine) { e.geometry = g }
}

// WithLogger sets the log entry the engine writes to.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// Engine owns one paint surface: its settings, grid and paint session.
// It is not safe for concurrent use; callers serialize access.
type Engine struct {
	settings Settings
	grid     *Grid

	renderer Renderer
	geometry Geometry
	log      *logrus.Entry

	offset   Point
	painting bool
	attached *attachment
}

type attachment struct {
	unsubscribe func()
	once        sync.Once
}

// New builds an engine from the defaults merged with overrides, then applies
// the initial style and (empty) description to the renderer.
func New(overrides Overrides, opts ...Option) (*Engine, error) {
	settings, err := overrides.Merge(DefaultSettings())
	if err != nil {
		return nil, err
	}
	grid, err := NewGrid(settings.GridWidth, settings.GridHeight)
	if err != nil {
		return nil, err
	}
	e := &Engine{settings: settings, grid: grid}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.refreshOffset()
	e.applyStyle()
	e.publish()
	return e, nil
}

// Settings returns a copy of the current configuration.
func (e *Engine) Settings() Settings { return e.settings }

// Style returns the styling derived from the current configuration.
func (e *Engine) Style() Style {
	s := e.settings
	return Style{
		Width:       float64(s.GridWidth) * s.CellSize,
		Height:      float64(s.GridHeight) * s.CellSize,
		CellSize:    s.CellSize,
		Background:  s.Background,
		BorderColor: s.BorderColor,
		BorderWidth: s.BorderWidth,
		BorderStyle: s.BorderStyle,
	}
}

// Painting reports whether a paint session is active.
func (e *Engine) Painting() bool { return e.painting }

// Offset returns the canvas offset captured at the last attach or pointer-down.
func (e *Engine) Offset() Point { return e.offset }

// SetCellSize changes the cell size; existing cells keep their positions in
// the grid, so every offset in the description is rescaled.
func (e *Engine) SetCellSize(size float64) error {
	if err := ValidateCellSize(size); err != nil {
		return err
	}
	e.settings.CellSize = size
	e.log.WithField("cell_size", size).Debug("paint: cell size set")
	e.applyStyle()
	e.publish()
	return nil
}

// SetCanvasSize resizes the grid. Every painted cell is discarded: a new
// size invalidates the old coordinate space.
func (e *Engine) SetCanvasSize(width, height int) error {
	if err := e.grid.Resize(width, height); err != nil {
		return err
	}
	e.settings.GridWidth, e.settings.GridHeight = width, height
	e.log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("paint: canvas resized, grid cleared")
	e.applyStyle()
	e.publish()
	return nil
}

func (e *Engine) SetBackground(v string) {
	e.settings.Background = v
	e.applyStyle()
}

func (e *Engine) SetBorderColor(v string) {
	e.settings.BorderColor = v
	e.applyStyle()
}

// SetBorderWidth takes effect on the canvas offset at the next attach or
// pointer-down.
func (e *Engine) SetBorderWidth(v float64) {
	e.settings.BorderWidth = v
	e.applyStyle()
}

func (e *Engine) SetBorderStyle(v string) {
	e.settings.BorderStyle = v
	e.applyStyle()
}

// SetColor changes the color used by later writes only.
func (e *Engine) SetColor(c Color) {
	e.settings.Color = c
}

// Configure moves the engine to s through the individual setters, touching
// only the fields that differ. The canvas is resized (and cleared) only when
// the dimensions change. s is validated up front, so an error leaves the
// engine as it was.
func (e *Engine) Configure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	cur := e.settings
	if s.CellSize != cur.CellSize {
		if err := e.SetCellSize(s.CellSize); err != nil {
			return err
		}
	}
	if s.GridWidth != cur.GridWidth || s.GridHeight != cur.GridHeight {
		if err := e.SetCanvasSize(s.GridWidth, s.GridHeight); err != nil {
			return err
		}
	}
	if s.Background != cur.Background {
		e.SetBackground(s.Background)
	}
	if s.BorderColor != cur.BorderColor {
		e.SetBorderColor(s.BorderColor)
	}
	if s.BorderWidth != cur.BorderWidth {
		e.SetBorderWidth(s.BorderWidth)
	}
	if s.BorderStyle != cur.BorderStyle {
		e.SetBorderStyle(s.BorderStyle)
	}
	if s.Color != cur.Color {
		e.SetColor(s.Color)
	}
	return nil
}

// Cell returns the color stored at (x, y).
func (e *Engine) Cell(x, y int) (Color, bool) { return e.grid.Cell(x, y) }

// PaintedCount returns the number of painted cells.
func (e *Engine) PaintedCount() int { return e.grid.PaintedCount() }

// SetCell writes color at (x, y) and re-renders when the cell changed.
// Out of bounds writes are ignored.
func (e *Engine) SetCell(x, y int, color Color) {
	if e.grid.SetCell(x, y, color) {
		e.publish()
	}
}

// MapPointerToCell converts page coordinates into an unclamped cell position.
func (e *Engine) MapPointerToCell(pageX, pageY float64) (x, y int) {
	fx := math.Floor((pageX - e.offset.X) / e.settings.CellSize)
	fy := math.Floor((pageY - e.offset.Y) / e.settings.CellSize)
	if !finiteInt(fx) || !finiteInt(fy) {
		return -1, -1
	}
	return int(fx), int(fy)
}

// PointerDown starts (or continues) a paint session and paints under the
// pointer. The canvas offset is re-read from the geometry collaborator.
func (e *Engine) PointerDown(pageX, pageY float64) {
	e.painting = true
	e.refreshOffset()
	e.paintAt(pageX, pageY)
}

// PointerMove paints under the pointer while a session is active.
func (e *Engine) PointerMove(pageX, pageY float64) {
	if !e.painting {
		return
	}
	e.paintAt(pageX, pageY)
}

// PointerUp ends the paint session. It is safe to call at any time.
func (e *Engine) PointerUp() {
	e.painting = false
}

// Attach subscribes the engine to src and uses geom for offset queries. The
// returned release unsubscribes and ends any session; it is idempotent.
// Attaching again releases the previous attachment first.
func (e *Engine) Attach(src PointerSource, geom Geometry) (release func()) {
	if e.attached != nil {
		e.detach(e.attached)
	}
	if geom != nil {
		e.geometry = geom
	}
	e.painting = false
	e.refreshOffset()

	a := &attachment{}
	e.attached = a
	a.unsubscribe = src.Subscribe(e)
	e.applyStyle()
	e.publish()
	return func() { e.detach(a) }
}

func (e *Engine) detach(a *attachment) {
	a.once.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		if e.attached == a {
			e.attached = nil
			e.PointerUp()
		}
	})
}

// Render returns the compositing description of the current grid.
func (e *Engine) Render() Description {
	return describe(e.grid, e.settings.CellSize)
}

func (e *Engine) paintAt(pageX, pageY float64) {
	x, y := e.MapPointerToCell(pageX, pageY)
	if !e.grid.InBounds(x, y) {
		return
	}
	if e.grid.SetCell(x, y, e.settings.Color) {
		e.publish()
	}
}

func (e *Engine) refreshOffset() {
	var origin Point
	if e.geometry != nil {
		origin = e.geometry.Origin()
	}
	bw := e.settings.BorderWidth
	e.offset = Point{X: origin.X + bw, Y: origin.Y + bw}
}

func (e *Engine) applyStyle() {
	if e.renderer != nil {
		e.renderer.ApplyStyle(e.Style())
	}
}

func (e *Engine) publish() {
	if e.renderer != nil {
		e.renderer.ApplyDescription(e.Render())
	}
}

func finiteInt(v float64) bool {
	return !math.IsNaN(v) && v > math.MinInt32 && v < math.MaxInt32
}
