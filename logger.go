package raymarch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/raymarch/frame"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for raymarch and its sub-packages,
// including the HAL backends. By default nothing is logged. Pass nil to
// restore silence.
//
// Log levels used by raymarch:
//   - [slog.LevelDebug]: per-resource creation, skipped resizes and frames
//   - [slog.LevelInfo]: adapter selection, start and stop
//   - [slog.LevelWarn]: suboptimal surfaces, failed shader reloads
//
// Example:
//
//	raymarch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	frame.SetLogger(l)
	hal.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
