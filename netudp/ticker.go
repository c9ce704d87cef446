/*
@Description: Wall-clock time port, adapted from the teacher's
timers.go: a single fixed-period ticker rather than a general
heap-scheduled multi-worker timer, since fragmentos's core needs exactly
one cadence per port (state-machine TTL ticks at ~1Hz, shaper token
refill at 1ms).
*/

package netudp

import (
	"time"
)

// Ticker adapts a time.Ticker into fragmentos.TimeSource.
type Ticker struct {
	t      *time.Ticker
	closed bool
}

// NewTicker starts a ticker firing every interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(interval)}
}

// Tick implements fragmentos.TimeSource.
func (tk *Ticker) Tick() (ready bool, closed bool) {
	if tk.closed {
		return false, true
	}
	select {
	case <-tk.t.C:
		return true, false
	default:
		return false, false
	}
}

// Stop halts the ticker; subsequent Tick calls report closed.
func (tk *Ticker) Stop() {
	tk.t.Stop()
	tk.closed = true
}
