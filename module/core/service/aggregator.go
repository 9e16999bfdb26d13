package service

import (
	"sync"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

// Outcome is the result of offering a fix to the aggregator.
type Outcome int

const (
	// OutcomeStarted is the first point of a path.
	OutcomeStarted Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeDuplicate
	// OutcomeClosed means the session was torn down; the fix was ignored.
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeClosed:
		return "closed"
	}
	return "unknown"
}

type Tolerance struct {
	BaseMeters      float64
	IncrementMeters float64
}

// traversalState is the per-session accumulator.
type traversalState struct {
	previous  *domain.GeoFix
	path      []domain.Point
	distance  float64
	tolerance float64
}

// Aggregator filters GPS jitter with a growing tolerance and accumulates the
// accepted path for the current minute. Fix delivery and minute flushes both
// go through mu.
type Aggregator struct {
	mu     sync.Mutex
	tol    Tolerance
	state  traversalState
	closed bool
}

func NewAggregator(tol Tolerance) *Aggregator {
	a := &Aggregator{tol: tol}
	a.state.tolerance = tol.BaseMeters
	return a
}

func (a *Aggregator) Offer(fix domain.GeoFix) (Outcome, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return OutcomeClosed, 0
	}

	s := &a.state
	if s.previous == nil {
		s.previous = &fix
		s.path = append(s.path, fix.Point())
		return OutcomeStarted, 0
	}

	d := HaversineMeters(*s.previous, fix)
	switch {
	case d > 0 && d < s.tolerance:
		s.path = append(s.path, fix.Point())
		s.distance += d
		s.tolerance = a.tol.BaseMeters
		s.previous = &fix
		return OutcomeAccepted, d
	case d != 0:
		s.tolerance += a.tol.IncrementMeters
		return OutcomeRejected, d
	default:
		return OutcomeDuplicate, 0
	}
}

// Flush extracts the accumulated minute and hard-resets the state. It
// reports false, leaving state untouched, when there is nothing to flush.
func (a *Aggregator) Flush() ([]domain.Point, float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || len(a.state.path) == 0 {
		return nil, 0, false
	}

	path, distance := a.state.path, a.state.distance
	a.state = traversalState{tolerance: a.tol.BaseMeters}
	return path, distance, true
}

// Close discards the state. Offer and Flush are no-ops afterwards.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.state = traversalState{}
}

// Stats is a point-in-time view of the accumulator.
type Stats struct {
	Points          int
	DistanceMeters  float64
	ToleranceMeters float64
	Tracking        bool
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Points:          len(a.state.path),
		DistanceMeters:  a.state.distance,
		ToleranceMeters: a.state.tolerance,
		Tracking:        a.state.previous != nil,
	}
}
