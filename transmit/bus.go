package transmit

import (
	"time"

	"dccstation/core"
)

// Bus indexes used in timing events
const (
	BusOperations uint8 = 0
	BusService    uint8 = 1
)

// Bus is one track output: a slot, the consumer draining it and, when a
// command source is attached, the producer filling it. A bus without a
// producer only ever sends keep-alive filler.
type Bus struct {
	Name      string
	Index     uint8
	EnablePin core.GPIOPin

	Slot     *Slot
	Consumer *Consumer
	Producer *Producer
}

// NewBus wires a slot and consumer to a pulse channel
func NewBus(name string, index uint8, enable core.GPIOPin, channel PulseChannel) *Bus {
	slot := NewSlot(name)
	return &Bus{
		Name:      name,
		Index:     index,
		EnablePin: enable,
		Slot:      slot,
		Consumer:  NewConsumer(name, index, slot, channel),
	}
}

// AttachProducer adds a producer encoding state every cadence
func (b *Bus) AttachProducer(state *core.Global[CommandState], cadence time.Duration) *Producer {
	b.Producer = NewProducer(b.Index, state, b.Slot, cadence)
	return b.Producer
}

// Enable drives the booster enable line high
func (b *Bus) Enable() error {
	return core.DriveHigh(b.EnablePin)
}

// Disable drives the booster enable line low
func (b *Bus) Disable() error {
	return core.DriveLow(b.EnablePin)
}

// Spawn registers the bus tasks in the elevated pool
func (b *Bus) Spawn(s *Scheduler) error {
	if b.Producer != nil {
		if err := s.Spawn(Elevated, b.Name+" producer", b.Producer.Run); err != nil {
			return err
		}
	}
	return s.Spawn(Elevated, b.Name+" consumer", b.Consumer.Run)
}
