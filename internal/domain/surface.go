package domain

import (
	"time"

	"github.com/simbo/paintCSS/internal/paint"
)

// Surface is the stored configuration of one paint surface. Painted cells
// live only in the in-memory engine and are never written here.
type Surface struct {
	ID          uint    `gorm:"primaryKey"`
	CreatorID   uint    `gorm:"index;not null"`
	CellSize    float64 `gorm:"not null"`
	GridWidth   int     `gorm:"not null"`
	GridHeight  int     `gorm:"not null"`
	Background  string  `gorm:"size:64;not null"`
	BorderColor string  `gorm:"size:64;not null"`
	BorderWidth float64 `gorm:"not null"`
	BorderStyle string  `gorm:"size:32;not null"`
	Color       string  `gorm:"size:64;not null"`

	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
	LastActive time.Time `gorm:"index"`
}

// NewSurface builds an unsaved surface owned by creatorID.
func NewSurface(creatorID uint, s paint.Settings) *Surface {
	surface := &Surface{CreatorID: creatorID, LastActive: time.Now()}
	surface.SetSettings(s)
	return surface
}

// Settings returns the engine configuration stored on the surface.
func (s *Surface) Settings() paint.Settings {
	return paint.Settings{
		CellSize:    s.CellSize,
		GridWidth:   s.GridWidth,
		GridHeight:  s.GridHeight,
		Background:  s.Background,
		BorderColor: s.BorderColor,
		BorderWidth: s.BorderWidth,
		BorderStyle: s.BorderStyle,
		Color:       paint.Color(s.Color),
	}
}

// SetSettings copies an engine configuration onto the surface.
func (s *Surface) SetSettings(settings paint.Settings) {
	s.CellSize = settings.CellSize
	s.GridWidth = settings.GridWidth
	s.GridHeight = settings.GridHeight
	s.Background = settings.Background
	s.BorderColor = settings.BorderColor
	s.BorderWidth = settings.BorderWidth
	s.BorderStyle = settings.BorderStyle
	s.Color = string(settings.Color)
}

// SettingsPatch is a partial settings update. Nil fields are left alone;
// unlike paint.Overrides, a zero value here is a real value.
type SettingsPatch struct {
	CellSize    *float64 `json:"cell_size"`
	GridWidth   *int     `json:"grid_width"`
	GridHeight  *int     `json:"grid_height"`
	Background  *string  `json:"background"`
	BorderColor *string  `json:"border_color"`
	BorderWidth *float64 `json:"border_width"`
	BorderStyle *string  `json:"border_style"`
	Color       *string  `json:"color"`
}

// Apply returns base with every non-nil field of p laid over it.
func (p SettingsPatch) Apply(base paint.Settings) paint.Settings {
	out := base
	if p.CellSize != nil {
		out.CellSize = *p.CellSize
	}
	if p.GridWidth != nil {
		out.GridWidth = *p.GridWidth
	}
	if p.GridHeight != nil {
		out.GridHeight = *p.GridHeight
	}
	if p.Background != nil {
		out.Background = *p.Background
	}
	if p.BorderColor != nil {
		out.BorderColor = *p.BorderColor
	}
	if p.BorderWidth != nil {
		out.BorderWidth = *p.BorderWidth
	}
	if p.BorderStyle != nil {
		out.BorderStyle = *p.BorderStyle
	}
	if p.Color != nil {
		out.Color = paint.Color(*p.Color)
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}
