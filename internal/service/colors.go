package service

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// cssKeywords are the color keywords accepted besides hex notation.
var cssKeywords = map[string]bool{
	"transparent": true, "black": true, "silver": true, "gray": true,
	"white": true, "maroon": true, "red": true, "purple": true,
	"fuchsia": true, "green": true, "lime": true, "olive": true,
	"yellow": true, "navy": true, "blue": true, "teal": true,
	"aqua": true, "orange": true,
}

// ValidateColor accepts "#rgb", "#rrggbb" and the basic CSS keywords. Colors
// end up inside a box-shadow value, so anything else is refused.
func ValidateColor(c string) error {
	if cssKeywords[strings.ToLower(c)] {
		return nil
	}
	if len(c) != 4 && len(c) != 7 {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	if _, err := colorful.Hex(c); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	return nil
}
