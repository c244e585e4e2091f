//go:build rp2040

package main

import (
	"errors"
	"machine"

	"dccstation/core"
	"dccstation/config"
)

// RPGPIODriver implements core.GPIODriver on the RP2040 pads
type RPGPIODriver struct {
	configured map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a driver with no pins configured
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{configured: make(map[core.GPIOPin]machine.Pin)}
}

func (d *RPGPIODriver) pin(p core.GPIOPin) (machine.Pin, error) {
	if p > config.MaxPin {
		return 0, errors.New("gpio: pin out of range")
	}
	return machine.Pin(p), nil
}

func (d *RPGPIODriver) ConfigureOutput(p core.GPIOPin) error {
	pin, err := d.pin(p)
	if err != nil {
		return err
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	d.configured[p] = pin
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(p core.GPIOPin) error {
	pin, err := d.pin(p)
	if err != nil {
		return err
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	d.configured[p] = pin
	return nil
}

func (d *RPGPIODriver) SetPin(p core.GPIOPin, value bool) error {
	pin, ok := d.configured[p]
	if !ok {
		return errors.New("gpio: pin not configured")
	}
	pin.Set(value)
	return nil
}

func (d *RPGPIODriver) ReadPin(p core.GPIOPin) bool {
	pin, ok := d.configured[p]
	if !ok {
		return false
	}
	return pin.Get()
}
