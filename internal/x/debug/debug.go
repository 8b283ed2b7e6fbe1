// internal/x/debug/debug.go
// Package debug carries the single global verbose-tracing switch. The
// serve command sets it from --verbose; no package reads Enabled.
// Mirrors Global::Debug: never part of any contract, purely a developer aid.
package debug

import "sync/atomic"

var enabled atomic.Bool

// Enabled reports whether verbose diagnostic tracing is on.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled flips the global trace switch. Intended to be called once at
// startup (CLI flag), not toggled mid-cycle.
func SetEnabled(v bool) {
	enabled.Store(v)
}
