package transmit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrSequenceTooLong is returned for a sequence that can never fit in a PulseRing
	ErrSequenceTooLong = errors.New("transmit: pulse sequence longer than ring")
	// ErrRingStalled is returned when the reader stops draining a PulseRing
	ErrRingStalled = errors.New("transmit: pulse ring stalled")
)

// PulseRingSize is the capacity of a PulseRing. It holds two of the longest
// packets, about 15 ms of one bits or 25 ms of zero bits.
const PulseRingSize = 128

// PulseRing queues pulses from a task to the interrupt handler that feeds the
// hardware. There is exactly one writer and one reader. Sequences go in
// whole, so when the reader runs dry it is always between two sequences, and
// the zero bits Next hands out then only stretch the gap before the next
// preamble.
type PulseRing struct {
	buf       [PulseRingSize]PulseCode
	head      atomic.Uint32 // written by Push only
	tail      atomic.Uint32 // written by Next only
	underruns atomic.Uint32
}

// Len returns the number of queued pulses
func (r *PulseRing) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Free returns the number of pulses Push can accept
func (r *PulseRing) Free() int {
	return PulseRingSize - r.Len()
}

// Push queues all of seq and reports whether there was room. Nothing is
// queued when there is not.
func (r *PulseRing) Push(seq []PulseCode) bool {
	if len(seq) > r.Free() {
		return false
	}
	head := r.head.Load()
	for i, p := range seq {
		r.buf[(head+uint32(i))%PulseRingSize] = p
	}
	r.head.Store(head + uint32(len(seq)))
	return true
}

// Next removes and returns the oldest pulse. An empty ring yields a zero bit
// and counts an underrun, so the output never stops toggling. Safe to call
// from an interrupt handler.
func (r *PulseRing) Next() PulseCode {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		r.underruns.Add(1)
		return zeroPulse
	}
	p := r.buf[tail%PulseRingSize]
	r.tail.Store(tail + 1)
	return p
}

// Underruns returns how many zero bits Next sent in place of queued pulses
func (r *PulseRing) Underruns() uint32 { return r.underruns.Load() }

// Ring channel defaults. The reader takes a pulse at least every 200 µs, so
// a ring that frees nothing for the stall timeout has lost its reader.
const (
	DefaultRingPoll  = 500 * time.Microsecond
	DefaultRingStall = 50 * time.Millisecond
)

// RingChannel is a PulseChannel that queues into a PulseRing. Transmit
// returns once the whole sequence is queued, which may be up to a ring of
// pulses ahead of the track.
type RingChannel struct {
	ring  *PulseRing
	poll  time.Duration
	stall time.Duration
}

// NewRingChannel creates a channel over ring with the default timing
func NewRingChannel(ring *PulseRing) *RingChannel {
	return &RingChannel{ring: ring, poll: DefaultRingPoll, stall: DefaultRingStall}
}

// Ring returns the ring the channel queues into
func (c *RingChannel) Ring() *PulseRing { return c.ring }

// Transmit queues every pulse before End, sleeping while the ring is too full
func (c *RingChannel) Transmit(ctx context.Context, pulses []PulseCode) error {
	body, err := Terminated(pulses)
	if err != nil {
		return err
	}
	if len(body) > PulseRingSize {
		return ErrSequenceTooLong
	}

	deadline := time.Now().Add(c.stall)
	for !c.ring.Push(body) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrRingStalled
		}
		time.Sleep(c.poll)
	}
	return nil
}
