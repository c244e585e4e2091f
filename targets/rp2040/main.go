//go:build rp2040

package main

import (
	"context"
	_ "embed"
	"machine"
	"time"

	"dccstation/config"
	"dccstation/core"
	"dccstation/input"
	"dccstation/link"
	"dccstation/transmit"
	"dccstation/ui"
)

//go:embed board.json
var boardJSON []byte

// enabled lists the booster enable lines driven high so far
var enabled []core.GPIOPin

func main() {
	// Clear any watchdog left armed by a fatal reset
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	InitUSB()
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetFatalHandler(watchdogReset)
	core.SetResetHandler(func() { watchdogReset("host reset") })

	cfg, err := config.LoadConfig(boardJSON)
	if err != nil {
		core.Fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		core.Fatal("invalid config", err)
	}
	core.SetDebugEnabled(cfg.Debug)
	core.InitAsyncDebug()

	InitClock()
	core.SetGPIODriver(NewRPGPIODriver())

	state := transmit.NewCommandStateCell()
	scheduler := transmit.NewScheduler()

	ops, err := newBus("operations", transmit.BusOperations, cfg.Operations)
	if err != nil {
		core.Fatal("operations bus", err)
	}
	ops.AttachProducer(state, cfg.Cadence())
	buses := []*transmit.Bus{ops}
	if cfg.ServiceEnabled {
		svc, err := newBus("service", transmit.BusService, cfg.Service)
		if err != nil {
			core.Fatal("service bus", err)
		}
		buses = append(buses, svc)
	}
	for _, b := range buses {
		if err := b.Enable(); err != nil {
			core.Fatal(b.Name+" enable", err)
		}
		enabled = append(enabled, b.EnablePin)
		if err := b.Spawn(scheduler); err != nil {
			core.Fatal(b.Name+" spawn", err)
		}
	}

	events := input.NewEventCell()
	poller, err := InitInput(cfg, events)
	if err != nil {
		core.Fatal("input", err)
	}
	view, err := InitDisplay(cfg.Display)
	if err != nil {
		core.Fatal("display", err)
	}
	refresh := ui.NewTask(ui.NewThrottle(state), events, view, cfg.UIRefresh())

	core.InitCoreCommands()
	link.Init(state, ops.Consumer)
	InitLink()

	spawn(scheduler, transmit.Normal, "input", poller.Run)
	spawn(scheduler, transmit.Normal, "display", refresh.Run)
	spawn(scheduler, transmit.Normal, "usb reader", usbReaderLoop)
	spawn(scheduler, transmit.Normal, "link", linkLoop)

	if err := scheduler.Start(context.Background()); err != nil {
		core.Fatal("start scheduler", err)
	}
	core.DebugAsync("[boot] running")
	scheduler.Wait()
}

func newBus(name string, index uint8, pins config.BusPins) (*transmit.Bus, error) {
	ch, err := NewPIOPulseChannel(uint8(pins.PIO), uint8(pins.StateMachine), machine.Pin(pins.Data))
	if err != nil {
		return nil, err
	}
	return transmit.NewBus(name, index, core.GPIOPin(pins.Enable), ch), nil
}

func spawn(s *transmit.Scheduler, p transmit.Priority, name string, task transmit.Task) {
	if err := s.Spawn(p, name, task); err != nil {
		core.Fatal("spawn "+name, err)
	}
}

// watchdogReset drops the track outputs and reboots through the watchdog
func watchdogReset(string) {
	core.DriveLow(enabled...)
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	machine.Watchdog.Start()
	for {
		time.Sleep(time.Millisecond)
	}
}
