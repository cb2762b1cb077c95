package paint

import "errors"

// ErrInvalidDimension reports a non-positive or non-finite size handed to a
// sizing setter or to the constructor. Nothing is mutated when it is returned.
var ErrInvalidDimension = errors.New("paint: invalid dimension")
