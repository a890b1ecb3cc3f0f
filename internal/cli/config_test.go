package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gohx.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadToolConfig_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := LoadToolConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultToolConfig(), cfg)
}

func TestLoadToolConfig_OverlaysOnlyDefinedKeys(t *testing.T) {
	cfg, err := LoadToolConfig(writeConfig(t, `
database = "custom.db"
timeout = "5s"
`))
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Database)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	// undefined keys keep their defaults
	assert.Equal(t, DefaultToolConfig().Addr, cfg.Addr)
}

func TestLoadToolConfig_RejectsBadTimeout(t *testing.T) {
	_, err := LoadToolConfig(writeConfig(t, `timeout = "soon"`))
	assert.ErrorContains(t, err, "parse timeout")
}

func TestLoadToolConfig_RejectsNonPositiveCapacity(t *testing.T) {
	_, err := LoadToolConfig(writeConfig(t, `history_capacity = 0`))
	assert.ErrorContains(t, err, "must be positive")
}
