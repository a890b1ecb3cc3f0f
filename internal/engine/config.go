package engine

import (
	"time"

	"github.com/gohx/gohx/internal/history"
	"github.com/gohx/gohx/internal/swap"
)

// Config is the engine instance's explicit configuration. There is no
// ambient global state: independent engines (e.g. in tests) never
// cross-contaminate.
type Config struct {
	// BaseURL is the URL the bound document was served from; used to
	// resolve relative actions and as the initial history URL.
	BaseURL string

	// HistoryCapacity bounds the snapshot cache (default 10).
	HistoryCapacity int

	// DefaultSwapStyle applies when neither element nor response name
	// a style (default innerHTML).
	DefaultSwapStyle swap.Style

	// DefaultSyncStrategy applies when hx-sync names no strategy
	// (default abort/replace).
	DefaultSyncStrategy Strategy

	// Timeout bounds each request; zero disables. Expiry is treated as
	// cancellation: no swap occurs.
	Timeout time.Duration

	// SwapOnlyOnSuccess suppresses swapping for non-2xx responses.
	// Default false: server-driven error fragments are a first-class
	// pattern.
	SwapOnlyOnSuccess bool

	// SnapshotAfterSwap captures history snapshots after the swap
	// (new content under the new URL) instead of the default pre-swap
	// capture (departed content under the departed URL).
	SnapshotAfterSwap bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:     history.DefaultCapacity,
		DefaultSwapStyle:    swap.StyleInner,
		DefaultSyncStrategy: StrategyAbort,
	}
}

// normalize fills zero values with defaults.
func (c Config) normalize() Config {
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = history.DefaultCapacity
	}
	if c.DefaultSwapStyle == "" {
		c.DefaultSwapStyle = swap.StyleInner
	}
	if c.DefaultSyncStrategy == "" {
		c.DefaultSyncStrategy = StrategyAbort
	}
	return c
}
