package transmit

import (
	"context"
	"errors"

	"dccstation/dcc"
)

// ErrUnterminated is returned for a pulse sequence without an End marker
var ErrUnterminated = errors.New("transmit: pulse sequence not terminated")

// IdleFillerLen is the length of the keep-alive sequence, End included
const IdleFillerLen = 16

// PulseCode is one bit period on the track: the output is driven high for
// High microseconds, then low for Low microseconds.
type PulseCode struct {
	High uint16
	Low  uint16
}

// End marks the end of a pulse sequence
var End = PulseCode{}

var (
	onePulse  = PulseCode{High: dcc.OneHalfPeriodUS, Low: dcc.OneHalfPeriodUS}
	zeroPulse = PulseCode{High: dcc.ZeroHalfPeriodUS, Low: dcc.ZeroHalfPeriodUS}
)

// PulseFor returns the pulse encoding one bit
func PulseFor(bit bool) PulseCode {
	if bit {
		return onePulse
	}
	return zeroPulse
}

// PulseChannel is the hardware output of one bus. Transmit returns once the
// hardware has accepted every pulse of an End terminated sequence.
type PulseChannel interface {
	Transmit(ctx context.Context, pulses []PulseCode) error
}

// Terminated returns the pulses before the End marker, or ErrUnterminated
func Terminated(pulses []PulseCode) ([]PulseCode, error) {
	for i, p := range pulses {
		if p == End {
			return pulses[:i], nil
		}
	}
	return nil, ErrUnterminated
}

// MapBits writes one pulse per bit followed by End into out and returns the
// number of entries written. out needs len(bits)+1 entries.
func MapBits(bits []bool, out []PulseCode) int {
	for i, b := range bits {
		out[i] = PulseFor(b)
	}
	out[len(bits)] = End
	return len(bits) + 1
}

// IdleFiller returns the keep-alive sequence: zero bits, then End
func IdleFiller() [IdleFillerLen]PulseCode {
	var seq [IdleFillerLen]PulseCode
	for i := 0; i < IdleFillerLen-1; i++ {
		seq[i] = zeroPulse
	}
	seq[IdleFillerLen-1] = End
	return seq
}
