package transmit

import (
	"context"
	"sync/atomic"

	"dccstation/core"
	"dccstation/dcc"
)

// ConsumerState is what the consumer sent last
type ConsumerState uint32

const (
	// Idle: the slot was empty and keep-alive filler was sent
	Idle ConsumerState = iota
	// Draining: a packet was taken from the slot and sent
	Draining
)

func (s ConsumerState) String() string {
	if s == Draining {
		return "draining"
	}
	return "idle"
}

// Consumer feeds a pulse channel without pause. Every Poll sends either the
// pending packet or idle filler, so the track always sees a signal.
type Consumer struct {
	name    string
	bus     uint8
	slot    *Slot
	channel PulseChannel

	state  atomic.Uint32
	drains atomic.Uint32
	idles  atomic.Uint32

	pulses [dcc.MaxBits + 1]PulseCode
	filler [IdleFillerLen]PulseCode
}

// NewConsumer creates a consumer in the Idle state
func NewConsumer(name string, bus uint8, slot *Slot, channel PulseChannel) *Consumer {
	return &Consumer{
		name:    name,
		bus:     bus,
		slot:    slot,
		channel: channel,
		filler:  IdleFiller(),
	}
}

// TransmitError is a pulse channel failure on a named bus
type TransmitError struct {
	Bus string
	Err error
}

func (e *TransmitError) Error() string { return e.Bus + " transmit: " + e.Err.Error() }

func (e *TransmitError) Unwrap() error { return e.Err }

// Poll sends one sequence. A channel failure comes back as a TransmitError,
// which ends Run and is made fatal by the scheduler. Cancellation of ctx is
// returned as is.
func (c *Consumer) Poll(ctx context.Context) error {
	var seq []PulseCode

	if bits, n, ok := c.slot.Take(); ok {
		c.state.Store(uint32(Draining))
		seq = c.pulses[:MapBits(bits[:n], c.pulses[:])]
		core.RecordTiming(core.EvtDrained, c.bus, uint32(n), 0)
		c.drains.Add(1)
	} else {
		c.state.Store(uint32(Idle))
		seq = c.filler[:]
		core.RecordTiming(core.EvtIdleFill, c.bus, 0, 0)
		c.idles.Add(1)
	}

	if err := c.channel.Transmit(ctx, seq); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		core.RecordTiming(core.EvtTransmitFail, c.bus, uint32(len(seq)), 0)
		return &TransmitError{Bus: c.name, Err: err}
	}
	return nil
}

// Run polls until ctx is cancelled or the channel fails
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Poll(ctx); err != nil {
			return err
		}
	}
}

// State returns what the consumer sent last
func (c *Consumer) State() ConsumerState { return ConsumerState(c.state.Load()) }

// Drained returns the number of packets sent
func (c *Consumer) Drained() uint32 { return c.drains.Load() }

// Idles returns the number of filler sequences sent
func (c *Consumer) Idles() uint32 { return c.idles.Load() }
