package clock

import (
	"fmt"
	"time"
)

// Clock exposes the two time sources used for scheduling.
// GameHour is the deterministic campaign clock; NowMillis is an uptime-style
// wall clock used for cinematic pacing. Neither is advanced by the engine.
type Clock interface {
	GameHour() int
	NowMillis() int64
}

// Manual is a host-controlled clock. Both counters only move forward.
type Manual struct {
	hour   int
	millis int64
}

// Ensure Manual implements Clock interface
var _ Clock = (*Manual)(nil)

// NewManual creates a manual clock starting at the given hour and millis
func NewManual(hour int, millis int64) *Manual {
	return &Manual{hour: hour, millis: millis}
}

func (m *Manual) GameHour() int    { return m.hour }
func (m *Manual) NowMillis() int64 { return m.millis }

// AdvanceHours moves the game clock forward by n hours
func (m *Manual) AdvanceHours(n int) {
	if n < 0 {
		panic(fmt.Sprintf("clock: cannot advance game hour by %d", n))
	}
	m.hour += n
}

// AdvanceMillis moves the wall clock forward by n milliseconds
func (m *Manual) AdvanceMillis(n int64) {
	if n < 0 {
		panic(fmt.Sprintf("clock: cannot advance millis by %d", n))
	}
	m.millis += n
}

// Advance moves the wall clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceMillis(d.Milliseconds())
}

// SetHour sets the game hour; moving backwards panics
func (m *Manual) SetHour(hour int) {
	if hour < m.hour {
		panic(fmt.Sprintf("clock: game hour cannot move from %d back to %d", m.hour, hour))
	}
	m.hour = hour
}

// SetMillis sets the wall clock; moving backwards panics
func (m *Manual) SetMillis(millis int64) {
	if millis < m.millis {
		panic(fmt.Sprintf("clock: millis cannot move from %d back to %d", m.millis, millis))
	}
	m.millis = millis
}

// Realtime keeps a host-controlled game hour but reads millis from the wall clock.
// AdvanceMillis skews the wall clock forward so hosts can fast-forward timeouts.
type Realtime struct {
	hour int
	skew int64
	now  func() time.Time
}

// Ensure Realtime implements Clock interface
var _ Clock = (*Realtime)(nil)

// NewRealtime creates a realtime clock starting at the given game hour.
// A nil now func defaults to time.Now.
func NewRealtime(hour int, now func() time.Time) *Realtime {
	if now == nil {
		now = time.Now
	}
	return &Realtime{hour: hour, now: now}
}

func (r *Realtime) GameHour() int    { return r.hour }
func (r *Realtime) NowMillis() int64 { return r.now().UnixMilli() + r.skew }

// AdvanceMillis moves the wall clock forward by n millis
func (r *Realtime) AdvanceMillis(n int64) {
	if n < 0 {
		panic(fmt.Sprintf("clock: cannot advance millis by %d", n))
	}
	r.skew += n
}

// AdvanceHours moves the game clock forward by n hours
func (r *Realtime) AdvanceHours(n int) {
	if n < 0 {
		panic(fmt.Sprintf("clock: cannot advance game hour by %d", n))
	}
	r.hour += n
}
