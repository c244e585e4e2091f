// Package capture records the raw pulse timing of a DCC signal for bench
// diagnostics. It measures half periods only; it does not decode bits.
package capture

import (
	"context"
	"time"

	"dccstation/core"
)

// RingSize is the number of half periods kept between drains
const RingSize = 48

// Recorder turns pin edge timestamps into half period durations. Edge runs
// in the pin interrupt; Drain runs in a task.
type Recorder struct {
	ring     [RingSize]uint32
	count    int
	last     uint32
	started  bool
	overruns uint32
}

// Edge records the time since the previous edge. now is in microseconds and
// may wrap.
func (r *Recorder) Edge(now uint32) {
	core.CriticalSection(func() {
		if !r.started {
			r.started = true
			r.last = now
			return
		}
		d := now - r.last
		r.last = now
		if r.count == RingSize {
			r.overruns++
			return
		}
		r.ring[r.count] = d
		r.count++
	})
}

// Drain copies the recorded durations into dst, oldest first, and empties
// the ring. It returns the number copied and the overruns since the last
// drain.
func (r *Recorder) Drain(dst []uint32) (int, uint32) {
	var n int
	var overruns uint32
	core.CriticalSection(func() {
		n = copy(dst, r.ring[:r.count])
		copy(r.ring[:], r.ring[n:r.count])
		r.count -= n
		overruns = r.overruns
		r.overruns = 0
	})
	return n, overruns
}

// Run drains the ring every period and prints a summary of each batch
func (r *Recorder) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var batch [RingSize]uint32
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		n, overruns := r.Drain(batch[:])
		if n == 0 {
			continue
		}
		s := Summarize(batch[:n])
		s.Overruns = overruns
		core.DebugPrintln(s.String())
	}
}
