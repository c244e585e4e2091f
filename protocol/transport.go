package protocol

import "sync/atomic"

// CommandHandler handles one decoded message. It must consume its arguments
// from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device end of the link. It verifies incoming frames,
// dispatches their messages in sequence order and acknowledges every frame.
type Transport struct {
	scanner *frameScanner

	// Expected sequence of the next host frame, also echoed in every ACK
	// and response
	nextSequence atomic.Uint32

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

// NewTransport creates a device transport writing frames to output
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		scanner: newFrameScanner(true),
		output:  output,
		handler: handler,
	}
	t.nextSequence.Store(MessageDest)
	t.scanner.onResync = t.encodeAckNak
	return t
}

// Receive processes buffered input and pops what it consumed
func (t *Transport) Receive(input InputBuffer) {
	consumed := t.scanner.scan(input.Data(), t.handleFrame)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleFrame(seq uint8, payload []byte) {
	expected := uint8(t.nextSequence.Load())

	// A host restarting its session starts again at MessageDest
	if seq == MessageDest && expected != MessageDest {
		t.nextSequence.Store(MessageDest)
		expected = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	if seq == expected {
		t.nextSequence.Store(uint32(NextSequence(seq)))
		_ = t.parseFrame(payload)
	}

	// Acknowledge regardless: on a mismatch the echoed sequence acts as NAK
	t.encodeAckNak()
}

// parseFrame dispatches each message in the payload. A panicking handler
// drops the rest of the frame and forces a resync.
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.scanner.synced.Store(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scanner.synced.Store(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak writes an empty frame carrying the expected sequence and
// flushes it ahead of any response
func (t *Transport) encodeAckNak() {
	ns := uint8(t.nextSequence.Load())
	t.output.Output(EncodeFrame(ns, nil))
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one frame whose payload is produced by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(t.nextSequence.Load())})
	frameData(t.output)

	written := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(written+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand sends one message with arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.scanner.synced.Store(true)
	t.nextSequence.Store(MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes pending output to the wire
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
