package frame

import (
	"context"
	"sync"
	"time"
)

// Ticker grants frame ticks. Next blocks until the next tick and returns its
// timestamp, or returns false once the ticker is stopped or ctx is done.
type Ticker interface {
	Next(ctx context.Context) (time.Time, bool)
	Stop()
}

// IntervalTicker ticks on a fixed wall-clock interval. It stands in for
// display-synchronized callbacks on hosts that have none.
type IntervalTicker struct {
	t    *time.Ticker
	done chan struct{}
	once sync.Once
}

// NewIntervalTicker returns a ticker firing every d. A non-positive d is
// treated as 60 ticks per second.
func NewIntervalTicker(d time.Duration) *IntervalTicker {
	if d <= 0 {
		d = time.Second / 60
	}
	return &IntervalTicker{t: time.NewTicker(d), done: make(chan struct{})}
}

// Next waits for the next interval.
func (it *IntervalTicker) Next(ctx context.Context) (time.Time, bool) {
	select {
	case <-it.done:
		return time.Time{}, false
	default:
	}
	select {
	case <-ctx.Done():
		return time.Time{}, false
	case <-it.done:
		return time.Time{}, false
	case now := <-it.t.C:
		return now, true
	}
}

// Stop releases the ticker and wakes any pending Next. Safe to call twice.
func (it *IntervalTicker) Stop() {
	it.once.Do(func() {
		it.t.Stop()
		close(it.done)
	})
}

// ManualTicker ticks only when advanced. The clock starts at the given time
// and moves forward by the duration passed to each Advance.
type ManualTicker struct {
	mu      sync.Mutex
	now     time.Time
	pending []time.Time
	closed  bool
	notify  chan struct{}
}

// NewManualTicker returns a ticker whose clock reads start.
func NewManualTicker(start time.Time) *ManualTicker {
	return &ManualTicker{now: start, notify: make(chan struct{}, 1)}
}

// Advance moves the clock forward by d and queues one tick at the new time.
// Advancing a closed ticker does nothing.
func (m *ManualTicker) Advance(d time.Duration) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.now = m.now.Add(d)
	m.pending = append(m.pending, m.now)
	m.mu.Unlock()
	m.wake()
}

// Now returns the ticker clock.
func (m *ManualTicker) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Next returns the oldest queued tick, blocking until one is queued. After
// Close it drains the queue and then returns false.
func (m *ManualTicker) Next(ctx context.Context) (time.Time, bool) {
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			t := m.pending[0]
			m.pending = m.pending[1:]
			m.mu.Unlock()
			return t, true
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return time.Time{}, false
		}
		select {
		case <-ctx.Done():
			return time.Time{}, false
		case <-m.notify:
		}
	}
}

// Close stops granting ticks once the queue is drained.
func (m *ManualTicker) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

// Stop is Close.
func (m *ManualTicker) Stop() { m.Close() }

func (m *ManualTicker) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
