package protocol

import "sync/atomic"

// frameScanner splits a byte stream into verified frames. After any framing
// error it drops bytes up to the next sync byte.
type frameScanner struct {
	synced atomic.Bool

	// checkDest rejects frames whose sequence byte lacks MessageDest
	checkDest bool

	// onResync runs each time the scanner regains sync
	onResync func()
}

func newFrameScanner(checkDest bool) *frameScanner {
	s := &frameScanner{checkDest: checkDest}
	s.synced.Store(true)
	return s
}

// scan emits every complete frame in data and returns how many bytes were
// consumed. A trailing partial frame is left for the next call.
func (s *frameScanner) scan(data []byte, emit func(seq uint8, payload []byte)) int {
	total := len(data)

	for len(data) > 0 {
		if !s.synced.Load() {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			s.synced.Store(true)
			if s.onResync != nil {
				s.onResync()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.synced.Store(false)
			continue
		}
		seq := data[MessagePositionSeq]
		if s.checkDest && seq&^MessageSeqMask != MessageDest {
			s.synced.Store(false)
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.synced.Store(false)
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.synced.Store(false)
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		emit(seq, payload)
	}

	return total - len(data)
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}

// EncodeFrame builds a complete frame around payload. It returns nil when
// the frame would exceed MessageLengthMax.
func EncodeFrame(seq uint8, payload []byte) []byte {
	msgLen := MessageHeaderSize + len(payload) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return nil
	}
	frame := make([]byte, 0, msgLen)
	frame = append(frame, uint8(msgLen), seq)
	frame = append(frame, payload...)
	return appendTrailer(frame, CRC16(frame))
}
