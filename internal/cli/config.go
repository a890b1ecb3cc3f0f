package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ToolConfig carries the file-configurable defaults for gohx commands.
// Flags always win over the file; the file wins over built-in
// defaults.
type ToolConfig struct {
	// Database is the default trace database path.
	Database string

	// Addr is the demo server listen address.
	Addr string

	// Timeout bounds each engine request in scenario runs.
	Timeout time.Duration

	// HistoryCapacity bounds the engine's snapshot cache.
	HistoryCapacity int
}

// DefaultToolConfig returns the built-in defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		Database: "gohx-trace.db",
		Addr:     ":8080",
	}
}

type fileConfig struct {
	Database        string `toml:"database"`
	Addr            string `toml:"addr"`
	Timeout         string `toml:"timeout"`
	HistoryCapacity int    `toml:"history_capacity"`
}

// LoadToolConfig overlays a TOML file onto the defaults. Only keys
// present in the file override; an empty path returns the defaults.
func LoadToolConfig(path string) (ToolConfig, error) {
	cfg := DefaultToolConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ToolConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("database") {
		if v := strings.TrimSpace(raw.Database); v != "" {
			cfg.Database = v
		}
	}
	if meta.IsDefined("addr") {
		if v := strings.TrimSpace(raw.Addr); v != "" {
			cfg.Addr = v
		}
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return ToolConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("history_capacity") {
		if raw.HistoryCapacity <= 0 {
			return ToolConfig{}, fmt.Errorf("history_capacity must be positive, got %d", raw.HistoryCapacity)
		}
		cfg.HistoryCapacity = raw.HistoryCapacity
	}
	return cfg, nil
}
