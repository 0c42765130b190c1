// Package frame drives the per-frame step function from an injectable tick
// source.
//
// A Scheduler runs on one goroutine. Each tick it computes the elapsed time
// since the previous tick and calls the step function; a step error ends the
// loop. Stop may be called from any goroutine.
package frame

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// StepFunc advances the application by dt and renders one frame.
type StepFunc func(ctx context.Context, dt time.Duration) error

// StepError reports the step failure that stopped a Scheduler.
type StepError struct {
	// Frame is the zero-based index of the failed frame.
	Frame uint64
	Err   error
}

func (e *StepError) Error() string { return fmt.Sprintf("frame %d: %v", e.Frame, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxFrames stops the scheduler after n completed frames. Zero means
// no limit.
func WithMaxFrames(n uint64) Option {
	return func(s *Scheduler) { s.maxFrames = n }
}

// Scheduler calls a StepFunc once per tick.
type Scheduler struct {
	ticker    Ticker
	step      StepFunc
	maxFrames uint64

	stopped atomic.Bool
	frames  atomic.Uint64
	last    time.Time
	started bool
}

// NewScheduler returns a scheduler over ticker and step.
func NewScheduler(ticker Ticker, step StepFunc, opts ...Option) *Scheduler {
	s := &Scheduler{ticker: ticker, step: step}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until Stop, ctx cancellation, the ticker running dry, the frame
// limit, or a step error. Stop and a dry ticker return nil; cancellation
// returns ctx.Err(); a step error is returned as *StepError. The ticker is
// stopped when Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.ticker.Stop()
	slogger().Debug("frame: scheduler started", "max_frames", s.maxFrames)

	for {
		if s.stopped.Load() {
			slogger().Debug("frame: scheduler stopped", "frames", s.frames.Load())
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		now, ok := s.ticker.Next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			slogger().Debug("frame: ticker exhausted", "frames", s.frames.Load())
			return nil
		}
		if s.stopped.Load() {
			slogger().Debug("frame: scheduler stopped", "frames", s.frames.Load())
			return nil
		}

		var dt time.Duration
		if s.started {
			dt = now.Sub(s.last)
			if dt < 0 {
				dt = 0
			}
		}
		s.last = now
		s.started = true

		n := s.frames.Load()
		if err := s.step(ctx, dt); err != nil {
			return &StepError{Frame: n, Err: err}
		}
		n = s.frames.Add(1)
		if s.maxFrames > 0 && n >= s.maxFrames {
			slogger().Debug("frame: frame limit reached", "frames", n)
			return nil
		}
	}
}

// Stop requests the loop to end before its next step. Safe from any
// goroutine and safe to call more than once.
func (s *Scheduler) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.ticker.Stop()
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool { return s.stopped.Load() }

// Frames reports the number of completed frames.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }
