// Package ui is the front panel throttle: a single page with address and
// speed controls driven by input events and drawn on a small display.
package ui

import (
	"dccstation/core"
	"dccstation/input"
	"dccstation/transmit"
)

// Widget is a control on the throttle page, in cursor order
type Widget int

const (
	AddressDown Widget = iota
	AddressUp
	SpeedDown
	SpeedUp

	NumWidgets
)

func (w Widget) String() string {
	switch w {
	case AddressDown:
		return "address-"
	case AddressUp:
		return "address+"
	case SpeedDown:
		return "speed-"
	case SpeedUp:
		return "speed+"
	default:
		return "none"
	}
}

// Throttle applies input events to the command state. Every change goes
// through the state's clamping setters.
type Throttle struct {
	state  *core.Global[transmit.CommandState]
	cursor Widget
}

// NewThrottle creates a throttle with the cursor on the first widget
func NewThrottle(state *core.Global[transmit.CommandState]) *Throttle {
	return &Throttle{state: state}
}

// Cursor returns the focused widget
func (t *Throttle) Cursor() Widget { return t.cursor }

// Apply handles one event
func (t *Throttle) Apply(e input.Event) {
	switch e.Kind {
	case input.MoveCursor:
		t.cursor += Widget(e.Value)
		if t.cursor < 0 {
			t.cursor = 0
		}
		if t.cursor >= NumWidgets {
			t.cursor = NumWidgets - 1
		}
	case input.Click:
		t.press(t.cursor)
	case input.Rotate:
		t.state.With(func(s *transmit.CommandState) { s.StepSpeed(e.Value) })
	case input.Hold:
		t.state.With(func(s *transmit.CommandState) { s.Stop() })
	}
}

func (t *Throttle) press(w Widget) {
	t.state.With(func(s *transmit.CommandState) {
		switch w {
		case AddressDown:
			s.StepAddress(-1)
		case AddressUp:
			s.StepAddress(1)
		case SpeedDown:
			s.StepSpeed(-1)
		case SpeedUp:
			s.StepSpeed(1)
		}
	})
}

// Snapshot copies the command state
func (t *Throttle) Snapshot() transmit.CommandState {
	var cmd transmit.CommandState
	t.state.With(func(s *transmit.CommandState) { cmd = *s })
	return cmd
}
