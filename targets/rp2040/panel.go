//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/encoders"
	"tinygo.org/x/drivers/ssd1331"

	"dccstation/config"
	"dccstation/core"
	"dccstation/input"
	"dccstation/ui"
)

const (
	displayWidth  = 96
	displayHeight = 64
	displaySPIHz  = 8000000
)

var display ssd1331.Device

// InitDisplay brings up the OLED on SPI0
func InitDisplay(pins config.DisplayPins) (*ui.View, error) {
	err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: displaySPIHz,
		SCK:       machine.Pin(pins.SCK),
		SDO:       machine.Pin(pins.MOSI),
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	display = ssd1331.New(machine.SPI0, machine.Pin(pins.Reset), machine.Pin(pins.DC), machine.Pin(pins.CS))
	display.Configure(ssd1331.Config{Width: displayWidth, Height: displayHeight})
	return ui.NewView(&display), nil
}

// InitInput wires the buttons and the rotary encoder to a poller
func InitInput(cfg *config.Config, events *core.Global[input.EventBuffer]) (*input.Poller, error) {
	enc := encoders.NewQuadratureViaInterrupt(machine.Pin(cfg.Input.RotaryA), machine.Pin(cfg.Input.RotaryB))
	if err := enc.Configure(encoders.QuadratureConfig{Precision: 4}); err != nil {
		return nil, err
	}
	// Buttons switch to 3V3, so a press reads high
	var buttons [3]*input.Button
	for i, p := range []int{cfg.Input.LeftButton, cfg.Input.RightButton, cfg.Input.FnButton} {
		read, err := core.PullDownReader(core.GPIOPin(p))
		if err != nil {
			return nil, err
		}
		buttons[i] = input.NewButton(read, false)
	}
	return input.NewPoller(events, buttons[0], buttons[1], buttons[2], input.NewRotary(enc), cfg.InputPoll()), nil
}
