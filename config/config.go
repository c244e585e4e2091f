// Package config holds the board wiring and task rates of the controller.
// It is loaded and validated once at startup, before any task runs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxPin is the highest RP2040 GPIO number
const MaxPin = 29

// BusPins is the wiring of one track output
type BusPins struct {
	Data         int `json:"data"`          // DCC signal into the booster
	Enable       int `json:"enable"`        // Booster enable, active high
	CurrentSense int `json:"current_sense"` // Reserved ADC input, not sampled
	PIO          int `json:"pio"`           // PIO block 0 or 1
	StateMachine int `json:"state_machine"` // State machine 0..3
}

// DisplayPins is the SPI wiring of the OLED panel
type DisplayPins struct {
	SCK   int `json:"sck"`
	MOSI  int `json:"mosi"`
	DC    int `json:"dc"`
	Reset int `json:"reset"`
	CS    int `json:"cs"`
}

// InputPins is the wiring of the front panel
type InputPins struct {
	RotaryA     int `json:"rotary_a"`
	RotaryB     int `json:"rotary_b"`
	LeftButton  int `json:"left_button"`
	RightButton int `json:"right_button"`
	FnButton    int `json:"fn_button"`
}

// Config is the complete controller configuration
type Config struct {
	Operations BusPins     `json:"operations"`
	Service    BusPins     `json:"service"`
	Display    DisplayPins `json:"display"`
	Input      InputPins   `json:"input"`

	CadenceMS   int `json:"cadence_ms"`    // Producer period
	UIRefreshHz int `json:"ui_refresh_hz"` // Throttle redraw rate
	InputPollHz int `json:"input_poll_hz"` // Button and encoder sampling rate

	ServiceEnabled bool `json:"service_enabled"`
	Debug          bool `json:"debug"`
}

// LoadConfig parses a JSON configuration over DefaultConfig, so omitted
// fields keep the board wiring. Rates given as zero take their defaults.
func LoadConfig(jsonData []byte) (*Config, error) {
	config := DefaultConfig()

	if err := json.Unmarshal(jsonData, config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	return config, nil
}

// applyDefaults fills in rates left at zero
func applyDefaults(config *Config) {
	if config.CadenceMS == 0 {
		config.CadenceMS = 15
	}
	if config.UIRefreshHz == 0 {
		config.UIRefreshHz = 60
	}
	if config.InputPollHz == 0 {
		config.InputPollHz = 900
	}
}

// DefaultConfig returns the controller board wiring
func DefaultConfig() *Config {
	return &Config{
		Operations: BusPins{
			Data:         3,
			Enable:       2,
			CurrentSense: 26,
			PIO:          0,
			StateMachine: 0,
		},
		Service: BusPins{
			Data:         6,
			Enable:       15,
			CurrentSense: 27,
			PIO:          0,
			StateMachine: 1,
		},
		Display: DisplayPins{
			SCK:   18,
			MOSI:  19,
			DC:    22,
			Reset: 20,
			CS:    17,
		},
		Input: InputPins{
			RotaryA:     12,
			RotaryB:     13,
			LeftButton:  1,
			RightButton: 10,
			FnButton:    11,
		},
		CadenceMS:      15,
		UIRefreshHz:    60,
		InputPollHz:    900,
		ServiceEnabled: true,
	}
}

// Cadence is the producer period
func (c *Config) Cadence() time.Duration {
	return time.Duration(c.CadenceMS) * time.Millisecond
}

// UIRefresh is the throttle redraw period
func (c *Config) UIRefresh() time.Duration {
	return time.Second / time.Duration(c.UIRefreshHz)
}

// InputPoll is the input sampling period
func (c *Config) InputPoll() time.Duration {
	return time.Second / time.Duration(c.InputPollHz)
}

type namedPin struct {
	name string
	pin  int
}

func (c *Config) pins() []namedPin {
	pins := []namedPin{
		{"operations.data", c.Operations.Data},
		{"operations.enable", c.Operations.Enable},
		{"operations.current_sense", c.Operations.CurrentSense},
	}
	if c.ServiceEnabled {
		pins = append(pins,
			namedPin{"service.data", c.Service.Data},
			namedPin{"service.enable", c.Service.Enable},
			namedPin{"service.current_sense", c.Service.CurrentSense},
		)
	}
	return append(pins,
		namedPin{"display.sck", c.Display.SCK},
		namedPin{"display.mosi", c.Display.MOSI},
		namedPin{"display.dc", c.Display.DC},
		namedPin{"display.reset", c.Display.Reset},
		namedPin{"display.cs", c.Display.CS},
		namedPin{"input.rotary_a", c.Input.RotaryA},
		namedPin{"input.rotary_b", c.Input.RotaryB},
		namedPin{"input.left_button", c.Input.LeftButton},
		namedPin{"input.right_button", c.Input.RightButton},
		namedPin{"input.fn_button", c.Input.FnButton},
	)
}

// Validate checks the configuration and returns every violation joined
func (c *Config) Validate() error {
	var errs []error

	owner := make(map[int]string)
	for _, p := range c.pins() {
		if p.pin < 0 || p.pin > MaxPin {
			errs = append(errs, fmt.Errorf("%s: pin %d out of range 0..%d", p.name, p.pin, MaxPin))
			continue
		}
		if prev, ok := owner[p.pin]; ok {
			errs = append(errs, fmt.Errorf("%s: pin %d already assigned to %s", p.name, p.pin, prev))
			continue
		}
		owner[p.pin] = p.name
	}

	errs = append(errs, validateBus("operations", c.Operations)...)
	if c.ServiceEnabled {
		errs = append(errs, validateBus("service", c.Service)...)
		if c.Operations.PIO == c.Service.PIO && c.Operations.StateMachine == c.Service.StateMachine {
			errs = append(errs, fmt.Errorf("service: state machine %d.%d already used by operations",
				c.Service.PIO, c.Service.StateMachine))
		}
	}

	if c.CadenceMS <= 0 {
		errs = append(errs, errors.New("cadence_ms must be positive"))
	}
	if c.UIRefreshHz <= 0 {
		errs = append(errs, errors.New("ui_refresh_hz must be positive"))
	}
	if c.InputPollHz <= 0 {
		errs = append(errs, errors.New("input_poll_hz must be positive"))
	}

	return errors.Join(errs...)
}

func validateBus(name string, b BusPins) []error {
	var errs []error
	if b.PIO < 0 || b.PIO > 1 {
		errs = append(errs, fmt.Errorf("%s.pio: block %d out of range 0..1", name, b.PIO))
	}
	if b.StateMachine < 0 || b.StateMachine > 3 {
		errs = append(errs, fmt.Errorf("%s.state_machine: %d out of range 0..3", name, b.StateMachine))
	}
	return errs
}
