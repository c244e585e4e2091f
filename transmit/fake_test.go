package transmit

import (
	"context"
	"sync"
	"testing"
	"time"

	"dccstation/core"
	"dccstation/dcc"
)

// fakeChannel records every accepted sequence without its End marker
type fakeChannel struct {
	mu    sync.Mutex
	sent  [][]PulseCode
	err   error
	delay time.Duration
}

func (f *fakeChannel) Transmit(ctx context.Context, pulses []PulseCode) error {
	body, err := Terminated(pulses)
	if err != nil {
		return err
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, append([]PulseCode(nil), body...))
	return nil
}

func (f *fakeChannel) sequences() [][]PulseCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]PulseCode(nil), f.sent...)
}

func (f *fakeChannel) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// pulsesToBits inverts MapBits
func pulsesToBits(t *testing.T, pulses []PulseCode) []bool {
	t.Helper()
	bits := make([]bool, len(pulses))
	for i, p := range pulses {
		switch p {
		case PulseFor(true):
			bits[i] = true
		case PulseFor(false):
			bits[i] = false
		default:
			t.Fatalf("Pulse %d has invalid timing %+v", i, p)
		}
	}
	return bits
}

func isIdleFiller(pulses []PulseCode) bool {
	if len(pulses) != IdleFillerLen-1 {
		return false
	}
	for _, p := range pulses {
		if p != PulseFor(false) {
			return false
		}
	}
	return true
}

func decodePacket(t *testing.T, pulses []PulseCode) dcc.SpeedAndDirection {
	t.Helper()
	pkt, err := dcc.Decode(pulsesToBits(t, pulses))
	if err != nil {
		t.Fatalf("Transmitted sequence does not decode: %v", err)
	}
	return pkt
}

// fatalRecorder replaces the fatal panic for the duration of a test
type fatalRecorder struct {
	ch chan string
}

func recordFatal(t *testing.T) *fatalRecorder {
	t.Helper()
	r := &fatalRecorder{ch: make(chan string, 8)}
	core.SetFatalHandler(func(msg string) {
		select {
		case r.ch <- msg:
		default:
		}
	})
	t.Cleanup(func() { core.SetFatalHandler(nil) })
	return r
}

func (r *fatalRecorder) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("Expected a fatal error")
		return ""
	}
}

func (r *fatalRecorder) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-r.ch:
		t.Errorf("Unexpected fatal error: %s", msg)
	default:
	}
}

// fakeGPIO records pin levels
type fakeGPIO struct {
	mu      sync.Mutex
	outputs map[core.GPIOPin]bool
	levels  map[core.GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{outputs: map[core.GPIOPin]bool{}, levels: map[core.GPIOPin]bool{}}
}

func (g *fakeGPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = true
	g.levels[pin] = false
	return nil
}

func (g *fakeGPIO) ConfigureInputPullDown(pin core.GPIOPin) error { return nil }

func (g *fakeGPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels[pin] = value
	return nil
}

func (g *fakeGPIO) ReadPin(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin]
}
