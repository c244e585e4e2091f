package protocol

import (
	"context"
	"net"
	"testing"
	"time"
)

func commandFrame(seq uint8, cmdID uint32, args ...int32) []byte {
	out := NewScratchOutput()
	EncodeVLQUint(out, cmdID)
	for _, a := range args {
		EncodeVLQInt(out, a)
	}
	return EncodeFrame(seq, out.Result())
}

type recordedCall struct {
	id   uint16
	args []int32
}

func newRecordingTransport(argc int) (*Transport, *ScratchOutput, *[]recordedCall) {
	var calls []recordedCall
	out := NewScratchOutput()
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		call := recordedCall{id: cmdID}
		for i := 0; i < argc; i++ {
			v, err := DecodeVLQInt(data)
			if err != nil {
				return err
			}
			call.args = append(call.args, v)
		}
		calls = append(calls, call)
		return nil
	})
	return tr, out, &calls
}

func TestTransportDispatchesAndAcks(t *testing.T) {
	tr, out, calls := newRecordingTransport(1)

	tr.Receive(NewSliceInputBuffer(commandFrame(0x10, 5, -12)))

	if len(*calls) != 1 || (*calls)[0].id != 5 || (*calls)[0].args[0] != -12 {
		t.Fatalf("Unexpected calls %+v", *calls)
	}
	if want := EncodeFrame(0x11, nil); string(out.Result()) != string(want) {
		t.Errorf("ACK = %v, want %v", out.Result(), want)
	}
}

func TestTransportIgnoresWrongSequence(t *testing.T) {
	tr, out, calls := newRecordingTransport(1)

	tr.Receive(NewSliceInputBuffer(commandFrame(0x10, 1, 0)))
	out.Reset()
	// Retransmission of the same frame must not run twice
	tr.Receive(NewSliceInputBuffer(commandFrame(0x13, 1, 0)))

	if len(*calls) != 1 {
		t.Errorf("Expected 1 dispatched call, got %d", len(*calls))
	}
	if want := EncodeFrame(0x11, nil); string(out.Result()) != string(want) {
		t.Errorf("NAK = %v, want %v", out.Result(), want)
	}
}

func TestTransportResyncAfterGarbage(t *testing.T) {
	tr, _, calls := newRecordingTransport(1)

	stream := []byte{0x03, 0xAA, 0x7E}
	stream = append(stream, commandFrame(0x10, 2, 7)...)
	tr.Receive(NewSliceInputBuffer(stream))

	if len(*calls) != 1 || (*calls)[0].args[0] != 7 {
		t.Errorf("Frame after garbage not dispatched: %+v", *calls)
	}
}

func TestTransportPartialFrame(t *testing.T) {
	tr, _, calls := newRecordingTransport(1)
	frame := commandFrame(0x10, 2, 7)

	fifo := NewFifoBuffer(64)
	fifo.Write(frame[:4])
	tr.Receive(fifo)
	if len(*calls) != 0 || fifo.Available() != 4 {
		t.Fatalf("Partial frame consumed: calls=%d left=%d", len(*calls), fifo.Available())
	}

	fifo.Write(frame[4:])
	tr.Receive(fifo)
	if len(*calls) != 1 || !fifo.IsEmpty() {
		t.Errorf("Completed frame not handled: calls=%d left=%d", len(*calls), fifo.Available())
	}
}

func TestTransportHostResetCallsBack(t *testing.T) {
	tr, _, _ := newRecordingTransport(1)
	var resets int
	tr.SetResetCallback(func() { resets++ })

	tr.Receive(NewSliceInputBuffer(commandFrame(0x10, 1, 0)))
	tr.Receive(NewSliceInputBuffer(commandFrame(0x10, 1, 0)))

	if resets != 1 {
		t.Errorf("Expected 1 reset, got %d", resets)
	}
}

func TestTransportResponseFrame(t *testing.T) {
	tr, out, _ := newRecordingTransport(0)
	tr.SendCommand(9, func(o OutputBuffer) {
		EncodeVLQUint(o, 3)
	})

	var payloads [][]byte
	s := newFrameScanner(true)
	s.scan(out.Result(), func(seq uint8, payload []byte) {
		payloads = append(payloads, payload)
	})
	if len(payloads) != 1 {
		t.Fatalf("Expected one frame, got %d", len(payloads))
	}
	p := payloads[0]
	id, _ := DecodeVLQUint(&p)
	arg, _ := DecodeVLQUint(&p)
	if id != 9 || arg != 3 {
		t.Errorf("Decoded id=%d arg=%d", id, arg)
	}
}

// serveDevice runs a device transport on one end of a pipe, echoing every
// received argument back as a response with ID 100.
func serveDevice(conn net.Conn) {
	out := NewScratchOutput()
	var tr *Transport
	tr = NewTransport(out, func(cmdID uint16, data *[]byte) error {
		v, err := DecodeVLQInt(data)
		if err != nil {
			return err
		}
		tr.SendCommand(100, func(o OutputBuffer) {
			EncodeVLQInt(o, v)
		})
		return nil
	})
	fifo := NewFifoBuffer(256)
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		fifo.Write(buf[:n])
		tr.Receive(fifo)
		if len(out.Result()) > 0 {
			if _, err := conn.Write(out.Result()); err != nil {
				return
			}
			out.Reset()
		}
	}
}

func TestHostTransportRoundTrip(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	defer deviceEnd.Close()
	go serveDevice(deviceEnd)

	host := NewHostTransport(hostEnd)
	defer host.Close()

	for _, v := range []int32{-28, 0, 28} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := host.SendCommand(ctx, 1, func(o OutputBuffer) { EncodeVLQInt(o, v) })
		if err != nil {
			cancel()
			t.Fatalf("SendCommand failed: %v", err)
		}
		resp, err := host.ReceiveResponse(ctx)
		cancel()
		if err != nil {
			t.Fatalf("ReceiveResponse failed: %v", err)
		}
		p := resp.Payload
		id, _ := DecodeVLQUint(&p)
		got, _ := DecodeVLQInt(&p)
		if id != 100 || got != v {
			t.Errorf("Response id=%d value=%d, want 100 and %d", id, got, v)
		}
	}
}

func TestHostTransportAckTimeout(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	defer deviceEnd.Close()
	// Drain writes without ever answering
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := deviceEnd.Read(buf); err != nil {
				return
			}
		}
	}()

	host := NewHostTransport(hostEnd)
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := host.SendCommand(ctx, 1, nil); err == nil {
		t.Error("Expected timeout error")
	}
}
