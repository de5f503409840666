package profile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/clock"
)

// Sweeper periodically purges an expired snapshot. It only checks
// time-based staleness and never calls the API.
type Sweeper struct {
	cache     *Cache
	interval  time.Duration
	onExpired func()

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
	release func() bool
}

// StartSweeper checks the cache every interval. When the stored
// snapshot is stale it is removed and onExpired is called, so the host
// can reload its authenticated context. The sweeper runs until Stop is
// called or ctx is done.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration, onExpired func()) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{cache: c, interval: interval, onExpired: onExpired}

	s.mu.Lock()
	s.timer = c.clock.AfterFunc(interval, func() { s.tick(ctx) })
	s.release = context.AfterFunc(ctx, s.Stop)
	s.mu.Unlock()
	return s
}

// Stop cancels the scheduled sweep. It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.release != nil {
		s.release()
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.isStopped() || ctx.Err() != nil {
		return
	}
	s.sweep(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.timer = s.cache.clock.AfterFunc(s.interval, func() { s.tick(ctx) })
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	log := s.cache.log
	st, err := s.cache.State(ctx)
	if err != nil {
		log.Error("sweep profile cache", zap.Error(err))
		return
	}
	if st != Stale {
		return
	}

	if err := s.cache.Clear(ctx); err != nil {
		log.Error("purge expired profile", zap.Error(err))
		return
	}
	log.Info("expired profile purged")
	if s.onExpired != nil {
		s.onExpired()
	}
}

func (s *Sweeper) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
