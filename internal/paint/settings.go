package paint

import (
	"fmt"
	"math"

	"github.com/jinzhu/copier"
)

// Color is an opaque color value handed straight to the renderer.
// The zero value marks an unpainted cell.
type Color string

// Default values applied when an override leaves a field empty.
const (
	DefaultCellSize    = 10
	DefaultGridWidth   = 50
	DefaultGridHeight  = 50
	DefaultBackground  = "#fff"
	DefaultBorderColor = "#000"
	DefaultBorderWidth = 1
	DefaultBorderStyle = "solid"
	DefaultColor       = Color("#f00")
)

// Settings is the full configuration of one engine.
type Settings struct {
	CellSize    float64 `json:"cell_size"`
	GridWidth   int     `json:"grid_width"`
	GridHeight  int     `json:"grid_height"`
	Background  string  `json:"background"`
	BorderColor string  `json:"border_color"`
	BorderWidth float64 `json:"border_width"`
	BorderStyle string  `json:"border_style"`
	Color       Color   `json:"color"`
}

// DefaultSettings returns a fresh copy of the defaults.
func DefaultSettings() Settings {
	return Settings{
		CellSize:    DefaultCellSize,
		GridWidth:   DefaultGridWidth,
		GridHeight:  DefaultGridHeight,
		Background:  DefaultBackground,
		BorderColor: DefaultBorderColor,
		BorderWidth: DefaultBorderWidth,
		BorderStyle: DefaultBorderStyle,
		Color:       DefaultColor,
	}
}

// Overrides carries caller supplied configuration. Zero fields keep the
// default, so a border width of 0 cannot be requested at construction time;
// use SetBorderWidth afterwards.
type Overrides struct {
	CellSize    float64 `json:"cell_size,omitempty" toml:"cell_size" yaml:"cell_size"`
	GridWidth   int     `json:"grid_width,omitempty" toml:"grid_width" yaml:"grid_width"`
	GridHeight  int     `json:"grid_height,omitempty" toml:"grid_height" yaml:"grid_height"`
	Background  string  `json:"background,omitempty" toml:"background" yaml:"background"`
	BorderColor string  `json:"border_color,omitempty" toml:"border_color" yaml:"border_color"`
	BorderWidth float64 `json:"border_width,omitempty" toml:"border_width" yaml:"border_width"`
	BorderStyle string  `json:"border_style,omitempty" toml:"border_style" yaml:"border_style"`
	Color       Color   `json:"color,omitempty" toml:"color" yaml:"color"`
}

// Merge lays the non-zero fields of o over base and validates the result.
func (o Overrides) Merge(base Settings) (Settings, error) {
	merged := base
	if err := copier.CopyWithOption(&merged, &o, copier.Option{IgnoreEmpty: true}); err != nil {
		return base, fmt.Errorf("paint: merge overrides: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return base, err
	}
	return merged, nil
}

// Over returns o with every empty field filled from defaults. Used to stack
// a service-wide defaults file under per-surface overrides.
func (o Overrides) Over(defaults Overrides) Overrides {
	out := defaults
	// Same field set on both sides; the copy cannot fail.
	_ = copier.CopyWithOption(&out, &o, copier.Option{IgnoreEmpty: true})
	return out
}

// Validate checks the sizing fields.
func (s Settings) Validate() error {
	if err := ValidateCellSize(s.CellSize); err != nil {
		return err
	}
	return ValidateCanvasSize(s.GridWidth, s.GridHeight)
}

// ValidateCellSize rejects non-positive and non-finite sizes.
func ValidateCellSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return fmt.Errorf("%w: cell size %v", ErrInvalidDimension, size)
	}
	return nil
}

// ValidateCanvasSize rejects non-positive cell counts.
func ValidateCanvasSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalidDimension, width, height)
	}
	return nil
}
