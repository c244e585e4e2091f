//go:build rp2040

// Command capture is bench firmware that timestamps every edge of a DCC
// signal on one pin and prints half period summaries over USB.
package main

import (
	"context"
	"machine"
	"runtime/volatile"
	"time"
	"unsafe"

	"dccstation/capture"
	"dccstation/core"
)

const (
	signalPin     = machine.GPIO5
	summaryPeriod = 250 * time.Millisecond
)

// Low word of the raw 1 MHz timer
var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(0x40054028)))

var recorder capture.Recorder

func main() {
	machine.Serial.Configure(machine.UARTConfig{})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)

	signalPin.Configure(machine.PinConfig{Mode: machine.PinInput})
	err := signalPin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		recorder.Edge(timerRAWL.Get())
	})
	if err != nil {
		core.Fatal("capture interrupt", err)
	}

	core.DebugPrintln("[capture] listening on GPIO5")
	if err := recorder.Run(context.Background(), summaryPeriod); err != nil {
		core.Fatal("capture", err)
	}
}
