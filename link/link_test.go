package link

import (
	"testing"

	"dccstation/core"
	"dccstation/protocol"
	"dccstation/transmit"
)

type sent struct {
	id   uint16
	args []byte
}

// recordingSender captures responses instead of framing them
type recordingSender struct {
	responses []sent
}

func (r *recordingSender) SendCommand(cmdID uint16, args func(output protocol.OutputBuffer)) {
	scratch := protocol.NewScratchOutput()
	if args != nil {
		args(scratch)
	}
	r.responses = append(r.responses, sent{id: cmdID, args: append([]byte(nil), scratch.Result()...)})
}

type fixedStats struct{ drained, idles uint32 }

func (s fixedStats) Drained() uint32 { return s.drained }
func (s fixedStats) Idles() uint32   { return s.idles }

func setup(t *testing.T) (*core.Global[transmit.CommandState], *recordingSender) {
	t.Helper()
	cell := transmit.NewCommandStateCell()
	Init(cell, fixedStats{drained: 40, idles: 7})

	sender := &recordingSender{}
	core.SetGlobalTransport(sender)
	t.Cleanup(func() { core.SetGlobalTransport(nil) })
	return cell, sender
}

func dispatch(t *testing.T, name string, args ...int32) {
	t.Helper()
	cmd, ok := core.GetGlobalRegistry().GetCommandByName(name)
	if !ok {
		t.Fatalf("Command %s not registered", name)
	}
	scratch := protocol.NewScratchOutput()
	for _, a := range args {
		protocol.EncodeVLQInt(scratch, a)
	}
	data := scratch.Result()
	if err := core.DispatchCommand(cmd.ID, &data); err != nil {
		t.Fatalf("Dispatch %s failed: %v", name, err)
	}
	if len(data) != 0 {
		t.Errorf("%s left %d argument bytes", name, len(data))
	}
}

type decodedState struct {
	address, drained, idles uint32
	speed                   int32
}

func decodeState(t *testing.T, r sent) decodedState {
	t.Helper()
	resp, _ := core.GetGlobalRegistry().GetCommandByName("state")
	if r.id != resp.ID {
		t.Fatalf("Response id %d is not state (%d)", r.id, resp.ID)
	}
	data := r.args
	var s decodedState
	var err error
	if s.address, err = protocol.DecodeVLQUint(&data); err != nil {
		t.Fatal(err)
	}
	if s.speed, err = protocol.DecodeVLQInt(&data); err != nil {
		t.Fatal(err)
	}
	if s.drained, err = protocol.DecodeVLQUint(&data); err != nil {
		t.Fatal(err)
	}
	if s.idles, err = protocol.DecodeVLQUint(&data); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGetState(t *testing.T) {
	_, sender := setup(t)
	dispatch(t, "get_state")

	if len(sender.responses) != 1 {
		t.Fatalf("Expected one response, got %d", len(sender.responses))
	}
	s := decodeState(t, sender.responses[0])
	want := decodedState{address: 3, speed: 0, drained: 40, idles: 7}
	if s != want {
		t.Errorf("Got %+v, want %+v", s, want)
	}
}

func TestSetCommandsClamp(t *testing.T) {
	cell, sender := setup(t)

	dispatch(t, "set_address", 200)
	dispatch(t, "set_speed", -40)

	var cmd transmit.CommandState
	cell.With(func(s *transmit.CommandState) { cmd = *s })
	if cmd.Address != 127 || cmd.Speed != -28 {
		t.Errorf("Unexpected state %+v", cmd)
	}

	last := decodeState(t, sender.responses[len(sender.responses)-1])
	if last.address != 127 || last.speed != -28 {
		t.Errorf("Response does not reflect clamped state: %+v", last)
	}
}

func TestStop(t *testing.T) {
	cell, _ := setup(t)
	dispatch(t, "set_speed", 12)
	dispatch(t, "stop")

	cell.With(func(s *transmit.CommandState) {
		if s.Speed != 0 || s.Address != 3 {
			t.Errorf("Stop left %+v", *s)
		}
	})
}

func TestTruncatedArguments(t *testing.T) {
	setup(t)
	cmd, _ := core.GetGlobalRegistry().GetCommandByName("set_speed")
	data := []byte{0x81}
	if err := core.DispatchCommand(cmd.ID, &data); err == nil {
		t.Error("Expected an error for a truncated VLQ")
	}
}

func TestRegistrationStable(t *testing.T) {
	setup(t)
	first, _ := core.GetGlobalRegistry().GetCommandByName("stop")
	count := core.GetGlobalRegistry().Count()

	setup(t)
	again, _ := core.GetGlobalRegistry().GetCommandByName("stop")
	if again.ID != first.ID || core.GetGlobalRegistry().Count() != count {
		t.Error("Registering twice changed the message table")
	}
}
