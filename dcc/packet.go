// Package dcc encodes and decodes NMRA DCC baseline packets.
//
// Only the 28-step speed and direction instruction is supported, addressed
// to a short (7-bit) locomotive address.
package dcc

import "errors"

// Bit timing, NMRA S-9.1 nominal half periods in microseconds
const (
	OneHalfPeriodUS  = 58
	ZeroHalfPeriodUS = 100
)

const (
	// PreambleBits is the number of one bits sent before every packet
	PreambleBits = 14

	// MaxSpeed is the highest 28-step speed
	MaxSpeed = 28

	// MaxAddress is the highest short locomotive address
	MaxAddress = 127

	// MaxBits is the capacity of a serialized packet buffer
	MaxBits = 64

	// MinPreambleBits is the shortest preamble a decoder accepts
	MinPreambleBits = 10
)

var (
	ErrAddressOutOfRange = errors.New("dcc: address out of range")
	ErrSpeedOutOfRange   = errors.New("dcc: speed out of range")
	ErrBufferTooSmall    = errors.New("dcc: packet does not fit buffer")
)

// Direction of travel encoded in the D bit
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// BitBuffer holds one serialized packet, one bool per bit, in transmit order
type BitBuffer [MaxBits]bool

// SpeedAndDirection is a baseline speed and direction packet
type SpeedAndDirection struct {
	Address   uint8
	Speed     uint8 // 0 (stop) to MaxSpeed
	Direction Direction
}

// NewSpeedAndDirection validates the fields of a packet
func NewSpeedAndDirection(address, speed uint8, dir Direction) (SpeedAndDirection, error) {
	if address > MaxAddress {
		return SpeedAndDirection{}, ErrAddressOutOfRange
	}
	if speed > MaxSpeed {
		return SpeedAndDirection{}, ErrSpeedOutOfRange
	}
	return SpeedAndDirection{Address: address, Speed: speed, Direction: dir}, nil
}

// Instruction returns the 01DCSSSS instruction byte. C carries the low bit
// of the five bit speed value, step n maps to value n+3 and 0 is stop.
func (p SpeedAndDirection) Instruction() byte {
	var v byte
	if p.Speed > 0 {
		v = p.Speed + 3
	}
	b := byte(0x40) | (v&1)<<4 | v>>1
	if p.Direction == Forward {
		b |= 0x20
	}
	return b
}

// Bytes returns address, instruction and error detection byte
func (p SpeedAndDirection) Bytes() [3]byte {
	instr := p.Instruction()
	return [3]byte{p.Address, instr, p.Address ^ instr}
}

// Serialize writes the packet bits into buf and returns the bit count
func (p SpeedAndDirection) Serialize(buf *BitBuffer) (int, error) {
	b := p.Bytes()
	return serialize(b[:], buf)
}

// Build validates and serializes a speed and direction packet in one step
func Build(address, magnitude uint8, dir Direction) (BitBuffer, int, error) {
	var buf BitBuffer
	pkt, err := NewSpeedAndDirection(address, magnitude, dir)
	if err != nil {
		return buf, 0, err
	}
	n, err := pkt.Serialize(&buf)
	return buf, n, err
}

// IdlePacket returns the serialized NMRA idle packet
func IdlePacket() (BitBuffer, int) {
	var buf BitBuffer
	n, _ := serialize([]byte{0xFF, 0x00, 0xFF}, &buf)
	return buf, n
}

// PacketBits is the serialized length of a packet carrying n data bytes
func PacketBits(n int) int {
	return PreambleBits + n*9 + 1
}

// serialize lays out preamble, then a 0 start bit before each byte MSB
// first, then the 1 end bit
func serialize(data []byte, buf *BitBuffer) (int, error) {
	if PacketBits(len(data)) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	n := 0
	for ; n < PreambleBits; n++ {
		buf[n] = true
	}
	for _, b := range data {
		buf[n] = false
		n++
		for bit := 7; bit >= 0; bit-- {
			buf[n] = b&(1<<bit) != 0
			n++
		}
	}
	buf[n] = true
	n++
	return n, nil
}
