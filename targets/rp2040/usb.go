//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"dccstation/core"
	"dccstation/protocol"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

// InitUSB configures the CDC serial port
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// InitLink sets up the framed host transport. Commands must already be
// registered.
func InitLink() {
	core.GetGlobalDictionary().Build()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// The host waits for the ack before reading the response
	transport.SetFlushCallback(writeUSB)
	core.SetGlobalTransport(transport)
}

// usbReaderLoop moves received bytes into the input FIFO
func usbReaderLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		for machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				break
			}
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				consecutiveWriteFailures = 0
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				core.DebugAsync("[link] input overflow")
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
	return ctx.Err()
}

// linkLoop services the host link until ctx is cancelled
func linkLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		UpdateSystemTime()
		linkStep()
		time.Sleep(200 * time.Microsecond)
	}
	return ctx.Err()
}

// linkStep parses buffered frames and flushes responses
func linkStep() {
	if inputBuffer.Available() > 0 {
		data := inputBuffer.Data()
		in := protocol.NewSliceInputBuffer(data)
		transport.Receive(in)
		if consumed := len(data) - in.Available(); consumed > 0 {
			inputBuffer.Pop(consumed)
		}
	}
	if len(outputBuffer.Result()) > 0 {
		writeUSB()
	}
	core.CheckPendingReset()
}

// writeUSB flushes the output buffer. Repeated failures mean the host went
// away; stale output is dropped.
func writeUSB() {
	result := outputBuffer.Result()
	for written := 0; written < len(result); {
		n, err := machine.Serial.Write(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
