package log

import (
	"sync"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

// fallback is used until the CLI installs its configured logger. It only
// shows warnings so packages used outside the CLI stay quiet.
var fallback = sync.OnceValue(func() *Logger {
	return New(Config{Level: LevelWarn, Format: FormatText})
})

// SetDefaultLogger installs the process-wide logger. nil restores the
// fallback.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// DefaultLogger returns the process-wide logger.
func DefaultLogger() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return fallback()
}
