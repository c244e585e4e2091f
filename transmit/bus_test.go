package transmit

import (
	"context"
	"testing"
	"time"

	"dccstation/core"
	"dccstation/dcc"
)

func TestBusEnable(t *testing.T) {
	gpio := newFakeGPIO()
	core.SetGPIODriver(gpio)
	defer core.SetGPIODriver(nil)

	bus := NewBus("operations", BusOperations, 7, &fakeChannel{})
	if err := bus.Enable(); err != nil {
		t.Fatal(err)
	}
	if !gpio.outputs[7] || !gpio.ReadPin(7) {
		t.Error("Enable pin not configured and driven high")
	}
	if err := bus.Disable(); err != nil {
		t.Fatal(err)
	}
	if gpio.ReadPin(7) {
		t.Error("Enable pin still high after Disable")
	}
}

func TestBusSpawn(t *testing.T) {
	ops := NewBus("operations", BusOperations, 0, &fakeChannel{})
	ops.AttachProducer(NewCommandStateCell(), DefaultCadence)
	svc := NewBus("service", BusService, 1, &fakeChannel{})

	s := NewScheduler()
	if err := ops.Spawn(s); err != nil {
		t.Fatal(err)
	}
	if err := svc.Spawn(s); err != nil {
		t.Fatal(err)
	}

	got := s.Tasks(Elevated)
	want := []string{"operations producer", "operations consumer", "service consumer"}
	if len(got) != len(want) {
		t.Fatalf("Elevated tasks %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Task %d is %q, want %q", i, got[i], want[i])
		}
	}
	if len(s.Tasks(Normal)) != 0 {
		t.Error("Bus tasks must not run in the normal pool")
	}
}

func TestBusPipeline(t *testing.T) {
	fatal := recordFatal(t)
	state := NewCommandStateCell()
	state.With(func(s *CommandState) {
		s.SetAddress(42)
		s.SetSpeed(-17)
	})

	opsCh := &fakeChannel{delay: time.Millisecond}
	svcCh := &fakeChannel{delay: time.Millisecond}
	ops := NewBus("operations", BusOperations, 0, opsCh)
	ops.AttachProducer(state, 5*time.Millisecond)
	svc := NewBus("service", BusService, 1, svcCh)

	s := NewScheduler()
	ops.Spawn(s)
	svc.Spawn(s)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Wait()
	fatal.none(t)

	var packets int
	want := dcc.SpeedAndDirection{Address: 42, Speed: 17, Direction: dcc.Reverse}
	for _, seq := range opsCh.sequences() {
		if isIdleFiller(seq) {
			continue
		}
		if pkt := decodePacket(t, seq); pkt != want {
			t.Errorf("Operations bus sent %+v, want %+v", pkt, want)
		}
		packets++
	}
	if packets == 0 {
		t.Error("Operations bus sent no packets")
	}
	// A packet taken right before cancel may not have reached the channel
	if d := ops.Consumer.Drained(); uint32(packets) != d && uint32(packets)+1 != d {
		t.Errorf("Sent %d packets but consumer drained %d", packets, d)
	}

	svcSent := svcCh.sequences()
	if len(svcSent) == 0 {
		t.Fatal("Service bus sent nothing")
	}
	for i, seq := range svcSent {
		if !isIdleFiller(seq) {
			t.Fatalf("Service bus transmission %d is not idle filler", i)
		}
	}
}
