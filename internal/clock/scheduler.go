// Package clock provides the time sources and recurring timers used by the
// session controller, with a fake for deterministic tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle to a recurring job.
type Timer interface {
	Stop()
}

// Scheduler runs fn every interval until the returned timer is stopped.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
	Now() time.Time
}

// Real schedules on wall-clock tickers.
type Real struct{}

var _ Scheduler = Real{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Every(interval time.Duration, fn func()) Timer {
	t := &realTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type realTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
