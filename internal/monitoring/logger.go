package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// verbosity gates the leveled helpers below. 0 silences everything except
// direct Logf callers; 3 includes per-slice trace output.
var verbosity atomic.Int32

// SetVerbosity sets the global verbosity level (0-3). Out-of-range values
// are clamped.
func SetVerbosity(level int) {
	if level < 0 {
		level = 0
	}
	if level > 3 {
		level = 3
	}
	verbosity.Store(int32(level))
}

// Verbosity returns the current verbosity level.
func Verbosity() int { return int(verbosity.Load()) }

// Infof logs at verbosity >= 1 (run-level progress, backend selection).
func Infof(format string, v ...interface{}) {
	if verbosity.Load() >= 1 {
		Logf(format, v...)
	}
}

// Diagf logs at verbosity >= 2 (per-frame summaries, threshold values).
func Diagf(format string, v ...interface{}) {
	if verbosity.Load() >= 2 {
		Logf(format, v...)
	}
}

// Tracef logs at verbosity >= 3 (per-object and per-slice telemetry).
func Tracef(format string, v ...interface{}) {
	if verbosity.Load() >= 3 {
		Logf(format, v...)
	}
}
