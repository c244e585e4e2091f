// Package protocol implements the framed serial link between the track
// controller and a host throttle.
//
// A frame is: length byte, sequence byte, payload, CRC16 (big endian) and a
// 0x7E sync byte. The payload is a run of messages, each a VLQ message ID
// followed by its VLQ encoded arguments. An empty payload is an ACK.
package protocol

// Version is the link protocol version reported in the dictionary
const Version = "0.1.0"

// Frame layout
const (
	MessageMax         = 256 // Size of a scratch output buffer
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence bytes carry MessageDest in the high nibble and a 4-bit
	// counter in the low nibble
	MessageDest     = 0x10
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4
)

// NextSequence returns the sequence byte following seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
