package transmit

import (
	"context"
	"sync/atomic"
	"time"

	"dccstation/core"
	"dccstation/dcc"
)

// DefaultCadence is the minimum spacing between packets to one address
const DefaultCadence = 15 * time.Millisecond

// Producer re-encodes the command state into a slot on a fixed cadence.
// A tick that finds the slot occupied is skipped; the consumer is never
// overwritten.
type Producer struct {
	bus     uint8
	state   *core.Global[CommandState]
	slot    *Slot
	cadence time.Duration

	built   atomic.Uint32
	skipped atomic.Uint32
}

// NewProducer creates a producer for one bus
func NewProducer(bus uint8, state *core.Global[CommandState], slot *Slot, cadence time.Duration) *Producer {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Producer{bus: bus, state: state, slot: slot, cadence: cadence}
}

// Step runs one production cycle and reports whether a packet was
// published. An encoder failure means the state invariant was broken and is
// fatal.
func (p *Producer) Step() bool {
	if p.slot.Pending() {
		p.skipped.Add(1)
		core.RecordTiming(core.EvtSlotBusy, p.bus, 0, 0)
		return false
	}

	var cmd CommandState
	p.state.With(func(s *CommandState) { cmd = *s })

	bits, n, err := dcc.Build(cmd.Address, cmd.Magnitude(), cmd.Direction())
	if err != nil {
		core.Fatal("encode packet", err)
		return false
	}

	if !p.slot.TryPut(bits, n) {
		p.skipped.Add(1)
		return false
	}
	p.built.Add(1)
	core.RecordTiming(core.EvtPacketBuilt, p.bus, uint32(cmd.Address), uint32(uint8(cmd.Speed)))
	return true
}

// Run produces until ctx is cancelled
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cadence)
	defer ticker.Stop()

	for {
		p.Step()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Built returns the number of packets published
func (p *Producer) Built() uint32 { return p.built.Load() }

// Skipped returns the number of ticks that found the slot occupied
func (p *Producer) Skipped() uint32 { return p.skipped.Load() }
