package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrFrameTooLong    = errors.New("frame exceeds maximum length")
)

// Message is one verified frame received by the host
type Message struct {
	Sequence uint8
	Payload  []byte
}

// HostTransport is the host end of the link: it sends command frames, waits
// for their ACKs and queues response frames.
type HostTransport struct {
	port    io.ReadWriteCloser
	scanner *frameScanner

	currentSeq atomic.Uint32

	inputBuffer *FifoBuffer
	ackChan     chan *Message
	respChan    chan *Message

	writeMutex sync.Mutex
	sendMutex  sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a reader on port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:        port,
		scanner:     newFrameScanner(false),
		inputBuffer: NewFifoBuffer(512),
		ackChan:     make(chan *Message, 1),
		respChan:    make(chan *Message, 16),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)
	go t.readLoop()
	return t
}

// SendCommand sends one message and waits for the device to acknowledge it
func (t *HostTransport) SendCommand(ctx context.Context, cmdID uint16, args func(output OutputBuffer)) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()

	seq := uint8(t.currentSeq.Load())
	frame := EncodeFrame(seq, scratch.Result())
	if frame == nil {
		return ErrFrameTooLong
	}
	if err := t.write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := t.waitForAck(ctx, NextSequence(seq)); err != nil {
		return fmt.Errorf("await ack: %w", err)
	}
	return nil
}

func (t *HostTransport) write(frame []byte) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// waitForAck waits until the device reports want as its next expected
// sequence. Stale ACKs from earlier frames are skipped.
func (t *HostTransport) waitForAck(ctx context.Context, want uint8) error {
	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != want {
				continue
			}
			t.currentSeq.Store(uint32(want))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-t.stopChan:
			return ErrTransportClosed
		}
	}
}

// ReceiveResponse returns the next response frame
func (t *HostTransport) ReceiveResponse(ctx context.Context) (*Message, error) {
	select {
	case resp := <-t.respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}

		t.inputBuffer.Write(buffer[:n])
		consumed := t.scanner.scan(t.inputBuffer.Data(), t.dispatch)
		t.inputBuffer.Pop(consumed)
	}
}

func (t *HostTransport) dispatch(seq uint8, payload []byte) {
	msg := &Message{Sequence: seq, Payload: append([]byte(nil), payload...)}

	if len(payload) == 0 {
		// Keep only the newest ACK
		select {
		case t.ackChan <- msg:
		default:
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	select {
	case t.respChan <- msg:
	default:
		// Full: drop the oldest response
		select {
		case <-t.respChan:
		default:
		}
		t.respChan <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		err = t.port.Close()
		<-t.doneChan
	})
	return err
}
