package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateColor(t *testing.T) {
	for _, c := range []string{"#f00", "#FF0000", "#00ff7f", "red", "Transparent"} {
		assert.NoError(t, ValidateColor(c), c)
	}
	for _, c := range []string{"", "f00", "#ff00", "#ggg", "red;background:url(x)", "rgb(1,2,3)", "#ff0000;x"} {
		err := ValidateColor(c)
		assert.True(t, errors.Is(err, ErrInvalidColor), c)
	}
}
