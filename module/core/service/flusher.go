package service

import (
	"sync"
	"time"
)

// NextBoundaryDelay returns the time left until the next wall-clock minute.
// At an exact boundary the next one is a full minute away.
func NextBoundaryDelay(now time.Time) time.Duration {
	return time.Minute - time.Duration(now.UnixNano()%int64(time.Minute))
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// MinuteFlusher fires on every minute boundary. Each firing re-derives the
// delay from the clock so handler latency never accumulates as drift. fire
// receives the boundary instant, not the moment the timer ran.
type MinuteFlusher struct {
	mu      sync.Mutex
	now     func() time.Time
	after   afterFunc
	fire    func(at time.Time)
	pending timer
	due     time.Time
	stopped bool
}

func NewMinuteFlusher(now func() time.Time, fire func(at time.Time)) *MinuteFlusher {
	return newMinuteFlusher(now, realAfterFunc, fire)
}

func newMinuteFlusher(now func() time.Time, after afterFunc, fire func(at time.Time)) *MinuteFlusher {
	if now == nil {
		now = time.Now
	}
	return &MinuteFlusher{now: now, after: after, fire: fire}
}

func (f *MinuteFlusher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || f.pending != nil {
		return
	}
	f.scheduleLocked(time.Time{})
}

// Stop cancels the pending timer. A firing already in progress completes but
// does not reschedule.
func (f *MinuteFlusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	if f.pending != nil {
		f.pending.Stop()
		f.pending = nil
	}
}

// scheduleLocked arms the timer for the first boundary after from, or after
// now when the clock is already past from.
func (f *MinuteFlusher) scheduleLocked(from time.Time) {
	now := f.now()
	if from.Before(now) {
		from = now
	}
	f.due = from.Add(NextBoundaryDelay(from))
	f.pending = f.after(f.due.Sub(now), f.tick)
}

func (f *MinuteFlusher) tick() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	at := f.due
	f.mu.Unlock()

	f.fire(at)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.scheduleLocked(at)
	}
}

// Due reports the boundary the pending timer is armed for.
func (f *MinuteFlusher) Due() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due
}
