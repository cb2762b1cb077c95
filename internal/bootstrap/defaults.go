package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/simbo/paintCSS/internal/paint"
)

// LoadSurfaceDefaults reads service-wide surface overrides from a TOML or YAML
// file, chosen by extension. An empty path yields no overrides.
func LoadSurfaceDefaults(path string) (paint.Overrides, error) {
	var o paint.Overrides
	if path == "" {
		return o, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("read surface defaults: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &o)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &o)
	default:
		return paint.Overrides{}, fmt.Errorf("surface defaults %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return paint.Overrides{}, fmt.Errorf("parse surface defaults %s: %w", path, err)
	}

	// Reject a file that would make every surface creation fail.
	if _, err := o.Merge(paint.DefaultSettings()); err != nil {
		return paint.Overrides{}, fmt.Errorf("surface defaults %s: %w", path, err)
	}
	return o, nil
}
