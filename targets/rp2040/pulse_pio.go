//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"

	pio "github.com/tinygo-org/pio/rp2-pio"

	"dccstation/transmit"
)

// Each TX FIFO word holds one pulse: the low half carries the high time and
// the high half the low time, both in state machine cycles with the fixed
// program overhead subtracted.
//
//	0: pull block
//	1: out x, 16
//	2: out y, 16
//	3: set pins, 1
//	4: jmp x--, 4     ; high for x+2 cycles counting from 3
//	5: set pins, 0
//	6: jmp y--, 6     ; low for y+5 cycles including the next pull
//
// The pin stays low while the FIFO is empty, so the FIFO is refilled from
// the TX-not-full interrupt rather than from a task.
func buildPulseProgram() []uint16 {
	return []uint16{
		pio.EncodePull(false, true),
		pio.EncodeOut(pio.SrcDestX, 16),
		pio.EncodeOut(pio.SrcDestY, 16),
		pio.EncodeSet(pio.SrcDestPins, 1),
		pio.EncodeJmp(4, pio.JmpXNZeroDec),
		pio.EncodeSet(pio.SrcDestPins, 0),
		pio.EncodeJmp(6, pio.JmpYNZeroDec),
	}
}

const (
	// One state machine cycle per microsecond
	pulseClockHz = 1000000

	highOverhead = 2
	lowOverhead  = 5
)

// loaded tracks the program offset per PIO block so both buses share one copy
var loaded [2]struct {
	ok     bool
	offset uint8
	irq    bool
}

// fed holds the running channels per block and state machine for the
// refill handlers
var fed [2][4]*PIOPulseChannel

// PIOPulseChannel drives one track output from a PIO state machine. Transmit
// queues into a pulse ring; the block's interrupt handler moves pulses from
// the ring into the TX FIFO whenever it has room, and sends zero bits when
// the ring is empty. The track keeps its signal however long the tasks are
// held up.
type PIOPulseChannel struct {
	*transmit.RingChannel
	sm  pio.StateMachine
	pin machine.Pin
}

// NewPIOPulseChannel loads the pulse program into block pioNum if needed and
// starts state machine smNum on pin.
func NewPIOPulseChannel(pioNum, smNum uint8, pin machine.Pin) (*PIOPulseChannel, error) {
	block := pio.PIO0
	if pioNum == 1 {
		block = pio.PIO1
	}
	sm := block.StateMachine(smNum)
	if !sm.TryClaim() {
		return nil, errors.New("pio: state machine already claimed")
	}

	program := buildPulseProgram()
	if !loaded[pioNum].ok {
		offset, err := block.AddProgram(program, -1)
		if err != nil {
			return nil, err
		}
		loaded[pioNum].ok = true
		loaded[pioNum].offset = offset
	}
	offset := loaded[pioNum].offset

	pin.Configure(machine.PinConfig{Mode: block.PinMode()})
	sm.SetPindirsConsecutive(pin, 1, true)
	sm.SetPinsConsecutive(pin, 1, false)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetFIFOJoin(pio.FifoJoinTx)
	cfg.SetWrap(offset, offset+uint8(len(program))-1)
	whole, frac, err := pio.ClkDivFromFrequency(pulseClockHz, uint32(machine.CPUFrequency()))
	if err != nil {
		return nil, err
	}
	cfg.SetClkDivIntFrac(whole, frac)

	sm.Init(offset, cfg)

	c := &PIOPulseChannel{
		RingChannel: transmit.NewRingChannel(&transmit.PulseRing{}),
		sm:          sm,
		pin:         pin,
	}
	fed[pioNum][smNum] = c
	enableRefill(pioNum, smNum)
	sm.SetEnabled(true)
	return c, nil
}

// enableRefill unmasks the TX-not-full source of smNum on IRQ 0 of the
// block, installing the block's handler on first use
func enableRefill(pioNum, smNum uint8) {
	regs := rp.PIO0
	if pioNum == 1 {
		regs = rp.PIO1
	}
	regs.IRQ0_INTE.SetBits(1 << (smNum + rp.PIO0_IRQ0_INTE_SM0_TXNFULL_Pos))

	if loaded[pioNum].irq {
		return
	}
	loaded[pioNum].irq = true
	if pioNum == 1 {
		interrupt.New(rp.IRQ_PIO1_IRQ_0, refillPIO1).Enable()
	} else {
		interrupt.New(rp.IRQ_PIO0_IRQ_0, refillPIO0).Enable()
	}
}

func refillPIO0(interrupt.Interrupt) { refill(&fed[0]) }
func refillPIO1(interrupt.Interrupt) { refill(&fed[1]) }

// refill tops up every FIFO of a block. The source is level triggered and
// Next always returns a pulse, so each FIFO leaves full and the line
// deasserts until the state machine pulls again.
func refill(channels *[4]*PIOPulseChannel) {
	for _, c := range channels {
		if c == nil {
			continue
		}
		ring := c.Ring()
		for !c.sm.IsTxFIFOFull() {
			c.sm.TxPut(encodePulse(ring.Next()))
		}
	}
}

func encodePulse(p transmit.PulseCode) uint32 {
	return uint32(p.Low-lowOverhead)<<16 | uint32(p.High-highOverhead)
}

// Underruns returns how many zero bits were sent because the ring was empty
func (c *PIOPulseChannel) Underruns() uint32 { return c.Ring().Underruns() }
