// Package transmit keeps the track powered with a continuous DCC signal.
//
// A Producer periodically encodes the current CommandState into a Slot. A
// Consumer drains the Slot into a PulseChannel and sends idle filler
// whenever the Slot is empty, so the channel never runs dry.
package transmit

import (
	"golang.org/x/exp/constraints"

	"dccstation/core"
	"dccstation/dcc"
)

// DefaultAddress is the factory address of most DCC decoders
const DefaultAddress = 3

// CommandState is the single locomotive command being transmitted.
// Speed is signed: its sign selects the direction, its magnitude the step.
type CommandState struct {
	Address uint8
	Speed   int8
}

// DefaultCommandState returns address 3, stopped
func DefaultCommandState() CommandState {
	return CommandState{Address: DefaultAddress}
}

// NewCommandStateCell returns a registry cell holding the default state
func NewCommandStateCell() *core.Global[CommandState] {
	return core.NewGlobalWith("command state", DefaultCommandState())
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetAddress stores a, clamped to 0..MaxAddress
func (s *CommandState) SetAddress(a int) {
	s.Address = uint8(clamp(a, 0, dcc.MaxAddress))
}

// SetSpeed stores v, clamped to -MaxSpeed..MaxSpeed
func (s *CommandState) SetSpeed(v int) {
	s.Speed = int8(clamp(v, -dcc.MaxSpeed, dcc.MaxSpeed))
}

// StepAddress moves the address by delta and clamps
func (s *CommandState) StepAddress(delta int) {
	s.SetAddress(int(s.Address) + delta)
}

// StepSpeed moves the speed by delta and clamps
func (s *CommandState) StepSpeed(delta int) {
	s.SetSpeed(int(s.Speed) + delta)
}

// Stop sets speed 0, keeping the address
func (s *CommandState) Stop() {
	s.Speed = 0
}

// Direction is Forward for positive speeds and Reverse otherwise. A stopped
// locomotive is sent Reverse.
func (s CommandState) Direction() dcc.Direction {
	if s.Speed > 0 {
		return dcc.Forward
	}
	return dcc.Reverse
}

// Magnitude is the absolute speed step
func (s CommandState) Magnitude() uint8 {
	if s.Speed < 0 {
		return uint8(-int(s.Speed))
	}
	return uint8(s.Speed)
}
