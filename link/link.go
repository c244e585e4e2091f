// Package link exposes the command state over the host serial link, so a
// PC throttle drives the same state as the front panel.
package link

import (
	"dccstation/core"
	"dccstation/protocol"
	"dccstation/transmit"
)

// Stats reports transmission counters. *transmit.Consumer satisfies it.
type Stats interface {
	Drained() uint32
	Idles() uint32
}

var (
	state *core.Global[transmit.CommandState]
	stats Stats
)

// Init registers the throttle commands in the global registry. Call it after
// core.InitCoreCommands and before the dictionary is built.
func Init(s *core.Global[transmit.CommandState], st Stats) {
	state = s
	stats = st

	core.RegisterCommand("get_state", "", handleGetState)
	core.RegisterResponse("state", "address=%c speed=%i drained=%u idles=%u")
	core.RegisterCommand("set_address", "address=%i", handleSetAddress)
	core.RegisterCommand("set_speed", "speed=%i", handleSetSpeed)
	core.RegisterCommand("stop", "", handleStop)
}

func handleGetState(_ *[]byte) error {
	sendState()
	return nil
}

func handleSetAddress(data *[]byte) error {
	address, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	state.With(func(s *transmit.CommandState) { s.SetAddress(int(address)) })
	sendState()
	return nil
}

func handleSetSpeed(data *[]byte) error {
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	state.With(func(s *transmit.CommandState) { s.SetSpeed(int(speed)) })
	sendState()
	return nil
}

func handleStop(_ *[]byte) error {
	state.With(func(s *transmit.CommandState) { s.Stop() })
	sendState()
	return nil
}

// sendState answers every throttle command with the resulting state
func sendState() {
	var cmd transmit.CommandState
	state.With(func(s *transmit.CommandState) { cmd = *s })

	var drained, idles uint32
	if stats != nil {
		drained, idles = stats.Drained(), stats.Idles()
	}

	core.SendResponse("state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(cmd.Address))
		protocol.EncodeVLQInt(output, int32(cmd.Speed))
		protocol.EncodeVLQUint(output, drained)
		protocol.EncodeVLQUint(output, idles)
	})
}
