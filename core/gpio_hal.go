package core

import "errors"

// GPIOPin is a pad number
type GPIOPin uint32

// ErrNoGPIODriver is returned by the helpers before a target registered a driver
var ErrNoGPIODriver = errors.New("core: no GPIO driver")

// GPIODriver drives the plain digital pins of the board: the booster enable
// lines and the front panel buttons. The track signal itself never goes
// through it.
type GPIODriver interface {
	// ConfigureOutput makes pin an output and drives it low
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullDown makes pin an input held low until pressed
	ConfigureInputPullDown(pin GPIOPin) error

	SetPin(pin GPIOPin, value bool) error
	ReadPin(pin GPIOPin) bool
}

var gpioDriver GPIODriver

// SetGPIODriver registers the target driver. nil unregisters it.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the registered driver and panics when there is none
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// DriveHigh configures pin as an output and raises it
func DriveHigh(pin GPIOPin) error {
	if gpioDriver == nil {
		return ErrNoGPIODriver
	}
	if err := gpioDriver.ConfigureOutput(pin); err != nil {
		return err
	}
	return gpioDriver.SetPin(pin, true)
}

// DriveLow lowers every pin, returning the first error. Pins are lowered even
// after a failure.
func DriveLow(pins ...GPIOPin) error {
	if gpioDriver == nil {
		return ErrNoGPIODriver
	}
	var first error
	for _, p := range pins {
		if err := gpioDriver.SetPin(p, false); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PullDownReader configures pin as a pulled down input and returns a reader
// for its level
func PullDownReader(pin GPIOPin) (func() bool, error) {
	if gpioDriver == nil {
		return nil, ErrNoGPIODriver
	}
	if err := gpioDriver.ConfigureInputPullDown(pin); err != nil {
		return nil, err
	}
	d := gpioDriver
	return func() bool { return d.ReadPin(pin) }, nil
}
