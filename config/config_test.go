package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/keepsake/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keepsake.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Snapshot.CodecName())
	assert.True(t, cfg.Snapshot.Atomic)
	assert.Equal(t, "slots", cfg.Slots.Path)
	assert.Equal(t, 10*time.Second, cfg.Stress.Duration)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"

[snapshot]
codec = "yaml"
gzip = true

[stress]
entities = 500
duration = "30s"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "yaml+gzip", cfg.Snapshot.CodecName())
	assert.Equal(t, 500, cfg.Stress.Entities)
	assert.Equal(t, 30*time.Second, cfg.Stress.Duration)
	assert.Equal(t, 60, cfg.Stress.SaveEvery)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"level":    "[logging]\nlevel = \"loud\"\n",
		"codec":    "[snapshot]\ncodec = \"xml\"\n",
		"entities": "[stress]\nentities = 0\n",
		"path":     "[slots]\npath = \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestInMemorySlotsNeedNoPath(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "[slots]\npath = \"\"\nin_memory = true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Slots.InMemory)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	_, err = config.Load(writeConfig(t, "[logging\n"))
	assert.ErrorContains(t, err, "parse config")
}
