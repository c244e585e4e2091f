package dcc

import "errors"

var (
	ErrPreamble    = errors.New("dcc: preamble too short")
	ErrFraming     = errors.New("dcc: bad start or end bit")
	ErrChecksum    = errors.New("dcc: error detection byte mismatch")
	ErrInstruction = errors.New("dcc: not a speed and direction instruction")
)

// DecodeBytes splits a bit stream into its data bytes, validating preamble,
// start bits, end bit and the XOR error detection byte.
func DecodeBytes(bits []bool) ([]byte, error) {
	n := 0
	for n < len(bits) && bits[n] {
		n++
	}
	if n < MinPreambleBits {
		return nil, ErrPreamble
	}

	var out []byte
	for {
		if n >= len(bits) {
			return nil, ErrFraming
		}
		if bits[n] {
			// End bit
			break
		}
		n++
		if n+8 > len(bits) {
			return nil, ErrFraming
		}
		var b byte
		for i := 0; i < 8; i++ {
			b <<= 1
			if bits[n] {
				b |= 1
			}
			n++
		}
		out = append(out, b)
	}

	if len(out) < 2 {
		return nil, ErrFraming
	}
	var check byte
	for _, b := range out {
		check ^= b
	}
	if check != 0 {
		return nil, ErrChecksum
	}
	return out, nil
}

// Decode recovers a speed and direction packet from its serialized bits
func Decode(bits []bool) (SpeedAndDirection, error) {
	data, err := DecodeBytes(bits)
	if err != nil {
		return SpeedAndDirection{}, err
	}
	if len(data) != 3 || data[1]&0xC0 != 0x40 {
		return SpeedAndDirection{}, ErrInstruction
	}
	if data[0] > MaxAddress {
		return SpeedAndDirection{}, ErrAddressOutOfRange
	}

	instr := data[1]
	v := (instr&0x0F)<<1 | (instr>>4)&1
	pkt := SpeedAndDirection{Address: data[0], Direction: Reverse}
	if instr&0x20 != 0 {
		pkt.Direction = Forward
	}
	// Values below 4 are stop and emergency stop
	if v >= 4 {
		pkt.Speed = v - 3
	}
	return pkt, nil
}
