package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Collection.Size)
	assert.Equal(t, "ico", cfg.Output.Format)
	assert.Equal(t, "data", cfg.Output.Dir)
	assert.Equal(t, 20, cfg.Timing.MaxScrolls)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Browser.Visible)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeFile(t, "base.toml", `
[collection]
url = "https://icons8.com/icons/collections/abc"
size = 128

[output]
format = "both"
dir = "icons"
`)
	override := writeFile(t, "override.toml", `
[collection]
size = 64

[timing]
scroll_settle = "250ms"
`)

	cfg, err := LoadFromFiles(base, "", override)
	require.NoError(t, err)

	assert.Equal(t, "https://icons8.com/icons/collections/abc", cfg.Collection.URL)
	assert.Equal(t, 64, cfg.Collection.Size)
	assert.Equal(t, "both", cfg.Output.Format)
	assert.Equal(t, "icons", cfg.Output.Dir)
	assert.Equal(t, "250ms", cfg.Timing.ScrollSettle)
	assert.Equal(t, "60s", cfg.Timing.NavigationTimeout, "unset keys keep defaults")
}

func TestLoadFromFiles_EnvOverridesFiles(t *testing.T) {
	path := writeFile(t, "config.toml", `
[collection]
email = "file@example.com"

[browser]
visible = false
`)
	t.Setenv("ICON_COLLECTOR_EMAIL", "env@example.com")
	t.Setenv("ICON_COLLECTOR_PASSWORD", "hunter2")
	t.Setenv("ICON_COLLECTOR_VISIBLE", "true")
	t.Setenv("ICON_COLLECTOR_SIZE", "512")
	t.Setenv("ICON_COLLECTOR_RUN_TIMEOUT", "not-a-duration")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.Collection.Email)
	assert.Equal(t, "hunter2", cfg.Collection.Password)
	assert.True(t, cfg.Browser.Visible)
	assert.Equal(t, 512, cfg.Collection.Size)
	assert.Equal(t, "10m", cfg.Timing.RunTimeout, "invalid env durations are ignored")
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadFromFiles(writeFile(t, "bad.toml", "[collection\nsize = "))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadFromFiles(writeFile(t, "format.toml", "[output]\nformat = \"svg\"\n"))
	assert.ErrorContains(t, err, "output.format")

	_, err = LoadFromFiles(writeFile(t, "dur.toml", "[timing]\nsettle_delay = \"soon\"\n"))
	assert.ErrorContains(t, err, "timing.settle_delay")
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Duration("1.5s", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("later", time.Second))
}
