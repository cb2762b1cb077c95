// Package dto defines the JSON messages exchanged over the websocket and
// between instances.
package dto

import "github.com/simbo/paintCSS/internal/paint"

// Client to server message types.
const (
	TypePointerDown = "pointer_down"
	TypePointerMove = "pointer_move"
	TypePointerUp   = "pointer_up"
	TypeSetColor    = "set_color"
)

// Server to client message types.
const (
	TypeStyle       = "style"
	TypeDescription = "description"
	TypeError       = "error"
)

// ClientMessage is any message a websocket client sends. Only the fields
// relevant to Type are read. Origin is the page position of the surface box
// and is only meaningful on pointer_down.
type ClientMessage struct {
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	Color   string  `json:"color,omitempty"`
}

// StyleMessage carries the surface styling.
type StyleMessage struct {
	Type string `json:"type"`
	paint.Style
}

// DescriptionMessage carries the current compositing description, both as a
// ready to use box-shadow value and as structured entries.
type DescriptionMessage struct {
	Type      string            `json:"type"`
	BoxShadow string            `json:"box_shadow"`
	Shadows   paint.Description `json:"shadows"`
}

// ErrorMessage reports a rejected client message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewDescriptionMessage wraps d.
func NewDescriptionMessage(d paint.Description) DescriptionMessage {
	if d == nil {
		d = paint.Description{}
	}
	return DescriptionMessage{Type: TypeDescription, BoxShadow: d.String(), Shadows: d}
}

// Surface event kinds published between instances.
const (
	EventCells    = "cells"
	EventSettings = "settings"
)

// SurfaceEvent is what one instance publishes so the others can replay a
// change on their own engine for the same surface.
type SurfaceEvent struct {
	Origin    string          `json:"origin"`
	SurfaceID uint            `json:"surface_id"`
	Kind      string          `json:"kind"`
	Cells     []paint.Cell    `json:"cells,omitempty"`
	Settings  *paint.Settings `json:"settings,omitempty"`
}
