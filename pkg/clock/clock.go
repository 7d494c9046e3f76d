// Package clock provides the time sources used to stamp interpreted
// requests and push messages: a monotonic wall clock and an independent
// simulated clock, both producing 64-bit timestamps, plus Pack for the
// packed seconds/fraction form.
package clock

import (
	"sync"
	"time"
)

// WallClock reports microseconds since an arbitrary epoch fixed at
// construction, guarded the same way the original's mutex-protected
// singleton was.
type WallClock struct {
	mu    sync.Mutex
	start time.Time
}

// NewWallClock returns a WallClock whose epoch is the moment of
// construction.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns microseconds elapsed since the clock was constructed.
func (w *WallClock) Now() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return uint64(time.Since(w.start).Microseconds())
}

// SimulationClock is an independently advancing clock, starting at t=0,
// intended to represent simulated rather than wall time. Nothing in this
// system advances it automatically; it exists as a distinct time source for
// callers that want to tag events with simulated ticks instead of wall
// time.
type SimulationClock struct {
	mu  sync.Mutex
	now uint64
}

// NewSimulationClock returns a SimulationClock starting at t=0.
func NewSimulationClock() *SimulationClock {
	return &SimulationClock{}
}

// Now returns the current simulated time.
func (s *SimulationClock) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}

// Advance moves the simulated clock forward by delta and returns the new
// value.
func (s *SimulationClock) Advance(delta uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now += delta
	return s.now
}

// Pack combines a count of seconds and a fractional remainder into a single
// 64-bit value: the lower 32 bits hold seconds, the upper 32 bits hold a
// fractional-second representation. This mirrors the packed timestamp
// format used to tag results; full sub-second precision is not derived from
// floating point here to avoid float-to-fixed rounding, so the upper bits
// carry zero when no fractional component is supplied.
func Pack(seconds uint64, fraction uint32) uint64 {
	return seconds | (uint64(fraction) << 32)
}
