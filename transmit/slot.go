package transmit

import (
	"dccstation/core"
	"dccstation/dcc"
)

type packet struct {
	bits dcc.BitBuffer
	n    int
}

// Slot hands one serialized packet from a producer to a consumer. The
// producer only writes an empty slot. The consumer takes and clears the
// slot in one step, so every packet is transmitted at most once.
type Slot struct {
	cell *core.Global[packet]
}

// NewSlot creates an empty slot
func NewSlot(name string) *Slot {
	return &Slot{cell: core.NewGlobal[packet](name + " slot")}
}

// TryPut publishes a packet if the slot is empty and reports whether it did
func (s *Slot) TryPut(bits dcc.BitBuffer, n int) bool {
	return s.cell.PutIfEmpty(packet{bits: bits, n: n})
}

// Take removes and returns the pending packet
func (s *Slot) Take() (dcc.BitBuffer, int, bool) {
	p, ok := s.cell.Take()
	return p.bits, p.n, ok
}

// Pending reports whether a packet is waiting
func (s *Slot) Pending() bool {
	return s.cell.IsSet()
}
