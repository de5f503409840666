package listquery

import (
	"sync"
	"time"

	"github.com/atinyakov/opsconsole/internal/clock"
)

// DefaultDebounce is the quiet period of the search filter.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs the most recently triggered function once no trigger
// has happened for the quiet period.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu     sync.Mutex
	timer  *clock.Timer
	gen    uint64
	closed bool
}

// NewDebouncer returns a Debouncer with the given quiet period.
func NewDebouncer(c clock.Clock, delay time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{clock: c, delay: delay}
}

// Trigger replaces any pending call with f and restarts the quiet
// period. It does nothing after Close.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.closed || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any. It reports whether one was
// pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Close cancels the pending call and ignores future triggers.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.gen++
	pending := d.timer.Stop()
	d.timer = nil
	return pending
}
