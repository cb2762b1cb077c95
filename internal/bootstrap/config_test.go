package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simbo/paintCSS/internal/paint"
)

var configEnv = []string{
	"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY_PREFIX",
	"JWT_SECRET", "SERVER_PORT", "LOG_LEVEL", "APP_ENV", "CORS_ALLOWED_ORIGIN",
	"RATE_LIMIT_MAX", "SURFACE_IDLE_MINUTES", "PAINT_DEFAULTS_FILE",
}

func clearEnv(t *testing.T) {
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "paint:", cfg.KeyPrefix)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Minute, cfg.SurfaceIdle)
	assert.Equal(t, 24, cfg.JWTExpiryHours)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_USER", "paint")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("RATE_LIMIT_MAX", "7")
	t.Setenv("SURFACE_IDLE_MINUTES", "5")
	t.Setenv("PAINT_DEFAULTS_FILE", "defaults.toml")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "paint", cfg.DB.User)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 7, cfg.RateLimitMax)
	assert.Equal(t, 5*time.Minute, cfg.SurfaceIdle)
	assert.Equal(t, "defaults.toml", cfg.DefaultsFile)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing redis", map[string]string{"JWT_SECRET": "s"}},
		{"missing secret", map[string]string{"REDIS_ADDR": "r:6379"}},
		{"bad rate limit", map[string]string{"REDIS_ADDR": "r:6379", "JWT_SECRET": "s", "RATE_LIMIT_MAX": "lots"}},
		{"bad idle", map[string]string{"REDIS_ADDR": "r:6379", "JWT_SECRET": "s", "SURFACE_IDLE_MINUTES": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSurfaceDefaults(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		o, err := LoadSurfaceDefaults("")
		require.NoError(t, err)
		assert.Equal(t, paint.Overrides{}, o)
	})

	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, "defaults.toml", "cell_size = 12.0\ngrid_width = 64\ncolor = \"#00f\"\n")

		o, err := LoadSurfaceDefaults(path)

		require.NoError(t, err)
		assert.Equal(t, paint.Overrides{CellSize: 12, GridWidth: 64, Color: "#00f"}, o)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "defaults.yaml", "grid_height: 20\nbackground: \"#eee\"\nborder_style: dashed\n")

		o, err := LoadSurfaceDefaults(path)

		require.NoError(t, err)
		assert.Equal(t, paint.Overrides{GridHeight: 20, Background: "#eee", BorderStyle: "dashed"}, o)
	})

	t.Run("invalid size", func(t *testing.T) {
		path := writeFile(t, "defaults.yml", "cell_size: -3\n")

		_, err := LoadSurfaceDefaults(path)

		assert.ErrorIs(t, err, paint.ErrInvalidDimension)
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := writeFile(t, "defaults.json", "{}")

		_, err := LoadSurfaceDefaults(path)

		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSurfaceDefaults(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
