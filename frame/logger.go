package frame

import (
	"log/slog"
	"sync/atomic"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() { SetLogger(nil) }

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the package logger. Nil discards all output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}
