package round

import "time"

// Loop is a fixed-timestep accumulator. The host calls it once per frame
// and it reports how many whole ticks are due at the current tick rate, so
// the simulation speed does not depend on the frame rate.
type Loop struct {
	lastTime time.Time
	acc      time.Duration
}

// Start resets the accumulator and anchors the clock at now.
func (l *Loop) Start(now time.Time) {
	l.lastTime = now
	l.acc = 0
}

// Hold moves the anchor without accumulating, used while paused or idle so
// the time spent there is never replayed as ticks.
func (l *Loop) Hold(now time.Time) {
	l.lastTime = now
}

// Advance accumulates the time since the previous call and drains it in
// whole ticks of 1/tickRate seconds. The tick length is fixed for the whole
// call even if the rate changes while the ticks run.
func (l *Loop) Advance(now time.Time, tickRate int) int {
	if l.lastTime.IsZero() {
		l.Start(now)
		return 0
	}

	dt := now.Sub(l.lastTime)
	l.lastTime = now
	if dt <= 0 {
		return 0
	}
	l.acc += dt

	if tickRate < 1 {
		tickRate = 1
	}
	perTick := time.Second / time.Duration(tickRate)

	n := int(l.acc / perTick)
	l.acc -= time.Duration(n) * perTick
	return n
}

// Pending is the accumulated time not yet consumed by a tick.
func (l *Loop) Pending() time.Duration { return l.acc }
