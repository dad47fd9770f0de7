package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced scheduler. Callbacks run synchronously inside
// Advance, in due-time order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

var _ Scheduler = (*Fake)(nil)

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Every(interval time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{fake: f, interval: interval, next: f.now.Add(interval), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Active returns the number of timers that have not been stopped.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Set moves the clock without firing timers.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d, firing every tick that falls due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		t := f.nextDue(target)
		if t == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn
		f.mu.Unlock()

		fn()
	}
}

func (f *Fake) nextDue(target time.Time) *fakeTimer {
	sort.SliceStable(f.timers, func(i, j int) bool {
		return f.timers[i].next.Before(f.timers[j].next)
	})
	for _, t := range f.timers {
		if !t.next.After(target) {
			return t
		}
	}
	return nil
}

func (f *Fake) remove(t *fakeTimer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ft := range f.timers {
		if ft == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	fake     *Fake
	interval time.Duration
	next     time.Time
	fn       func()
}

func (t *fakeTimer) Stop() {
	t.fake.remove(t)
}
