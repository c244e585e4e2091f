package core

import (
	"errors"
	"testing"
)

type pinRecorder struct {
	outputs   map[GPIOPin]bool
	pulldowns map[GPIOPin]bool
	levels    map[GPIOPin]bool
	failSet   GPIOPin
}

func newPinRecorder() *pinRecorder {
	return &pinRecorder{
		outputs:   map[GPIOPin]bool{},
		pulldowns: map[GPIOPin]bool{},
		levels:    map[GPIOPin]bool{},
		failSet:   ^GPIOPin(0),
	}
}

func (r *pinRecorder) ConfigureOutput(pin GPIOPin) error {
	r.outputs[pin] = true
	r.levels[pin] = false
	return nil
}

func (r *pinRecorder) ConfigureInputPullDown(pin GPIOPin) error {
	r.pulldowns[pin] = true
	return nil
}

func (r *pinRecorder) SetPin(pin GPIOPin, value bool) error {
	if pin == r.failSet {
		return errors.New("pad fault")
	}
	r.levels[pin] = value
	return nil
}

func (r *pinRecorder) ReadPin(pin GPIOPin) bool { return r.levels[pin] }

func TestGPIOHelpersWithoutDriver(t *testing.T) {
	SetGPIODriver(nil)
	if err := DriveHigh(2); !errors.Is(err, ErrNoGPIODriver) {
		t.Errorf("DriveHigh: expected ErrNoGPIODriver, got %v", err)
	}
	if err := DriveLow(2); !errors.Is(err, ErrNoGPIODriver) {
		t.Errorf("DriveLow: expected ErrNoGPIODriver, got %v", err)
	}
	if _, err := PullDownReader(10); !errors.Is(err, ErrNoGPIODriver) {
		t.Errorf("PullDownReader: expected ErrNoGPIODriver, got %v", err)
	}
}

func TestDriveHighLow(t *testing.T) {
	r := newPinRecorder()
	SetGPIODriver(r)
	defer SetGPIODriver(nil)

	for _, p := range []GPIOPin{2, 15} {
		if err := DriveHigh(p); err != nil {
			t.Fatal(err)
		}
		if !r.outputs[p] || !r.levels[p] {
			t.Errorf("Pin %d not configured as a high output", p)
		}
	}

	// A failing pad must not keep the others high
	r.failSet = 2
	if err := DriveLow(2, 15); err == nil {
		t.Error("Expected the pad fault to be reported")
	}
	if r.levels[15] {
		t.Error("Pin 15 left high after a failure on pin 2")
	}
}

func TestPullDownReader(t *testing.T) {
	r := newPinRecorder()
	SetGPIODriver(r)
	defer SetGPIODriver(nil)

	read, err := PullDownReader(10)
	if err != nil {
		t.Fatal(err)
	}
	if !r.pulldowns[10] {
		t.Error("Pin not configured with pull-down")
	}
	if read() {
		t.Error("Released button reads high")
	}
	r.levels[10] = true
	if !read() {
		t.Error("Pressed button reads low")
	}
}
