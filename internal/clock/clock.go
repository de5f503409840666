// Package clock provides an injectable time source so that TTL checks,
// the profile sweep and the search debounce can be driven
// deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package used by the console.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc calls f once d has elapsed. The returned Timer cancels
	// or reschedules the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle to a scheduled call.
type Timer struct {
	stop  func() bool
	reset func(time.Duration) bool
}

// Stop cancels the pending call. It reports whether the call was still
// pending.
func (t *Timer) Stop() bool { return t.stop() }

// Reset reschedules the call to fire d from now. It reports whether the
// call was still pending before the reset.
func (t *Timer) Reset(d time.Duration) bool { return t.reset(d) }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop, reset: t.Reset}
}
