// Package trace persists engine lifecycle events to SQLite so a
// session can be inspected and verified after the fact.
//
// Events are written flat, one row per lifecycle notification, keyed
// by (session, seq). The seq column carries the engine's logical clock
// stamp, so ordering queries never depend on wall time.
package trace
