package transmit

import (
	"context"
	"errors"
	"testing"
	"time"

	"dccstation/dcc"
)

func TestConsumerIdleWhenEmpty(t *testing.T) {
	ch := &fakeChannel{}
	consumer := NewConsumer("ops", BusOperations, NewSlot("ops"), ch)

	for i := 0; i < 3; i++ {
		if err := consumer.Poll(context.Background()); err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
	}

	if consumer.State() != Idle || consumer.Idles() != 3 || consumer.Drained() != 0 {
		t.Errorf("state=%s idles=%d drained=%d", consumer.State(), consumer.Idles(), consumer.Drained())
	}
	for i, seq := range ch.sequences() {
		if !isIdleFiller(seq) {
			t.Errorf("Transmission %d is not idle filler", i)
		}
		// Filler must be valid bit timing like any packet
		pulsesToBits(t, seq)
	}
}

func TestConsumerDrainsThenIdles(t *testing.T) {
	ch := &fakeChannel{}
	slot := NewSlot("ops")
	consumer := NewConsumer("ops", BusOperations, slot, ch)

	bits, n, _ := dcc.Build(9, 12, dcc.Reverse)
	slot.TryPut(bits, n)

	ctx := context.Background()
	if err := consumer.Poll(ctx); err != nil {
		t.Fatal(err)
	}
	if consumer.State() != Draining {
		t.Errorf("Expected Draining, got %s", consumer.State())
	}
	if err := consumer.Poll(ctx); err != nil {
		t.Fatal(err)
	}
	if consumer.State() != Idle {
		t.Errorf("Expected Idle, got %s", consumer.State())
	}

	sent := ch.sequences()
	if len(sent) != 2 {
		t.Fatalf("Expected 2 transmissions, got %d", len(sent))
	}
	if len(sent[0]) != n {
		t.Errorf("Packet transmitted with %d pulses, want %d", len(sent[0]), n)
	}
	want := dcc.SpeedAndDirection{Address: 9, Speed: 12, Direction: dcc.Reverse}
	if pkt := decodePacket(t, sent[0]); pkt != want {
		t.Errorf("Transmitted %+v, want %+v", pkt, want)
	}
	if !isIdleFiller(sent[1]) {
		t.Error("Expected idle filler right after the packet")
	}
}

func TestConsumerStalledProducer(t *testing.T) {
	ch := &fakeChannel{}
	slot := NewSlot("ops")
	consumer := NewConsumer("ops", BusOperations, slot, ch)
	bits, n, _ := dcc.Build(3, 7, dcc.Forward)

	// Keep the slot full for several polls
	const held = 5
	ctx := context.Background()
	for i := 0; i < held; i++ {
		slot.TryPut(bits, n)
		if err := consumer.Poll(ctx); err != nil {
			t.Fatalf("Poll %d failed: %v", i, err)
		}
	}
	// Released: the very next poll falls back to filler
	if err := consumer.Poll(ctx); err != nil {
		t.Fatal(err)
	}

	sent := ch.sequences()
	if len(sent) != held+1 {
		t.Fatalf("Expected %d transmissions without a gap, got %d", held+1, len(sent))
	}
	for i := 0; i < held; i++ {
		if pkt := decodePacket(t, sent[i]); pkt.Speed != 7 {
			t.Errorf("Transmission %d carried %+v", i, pkt)
		}
	}
	if !isIdleFiller(sent[held]) {
		t.Error("Consumer did not fall back to idle filler")
	}
}

func TestConsumerTransmitFailureReturned(t *testing.T) {
	fatal := recordFatal(t)
	stalled := errors.New("fifo stalled")
	ch := &fakeChannel{}
	ch.setErr(stalled)
	consumer := NewConsumer("operations", BusOperations, NewSlot("ops"), ch)

	err := consumer.Run(context.Background())
	if !errors.Is(err, stalled) {
		t.Fatalf("Expected Run to return the channel error, got %v", err)
	}
	var te *TransmitError
	if !errors.As(err, &te) || te.Bus != "operations" {
		t.Errorf("Expected a TransmitError for operations, got %#v", err)
	}
	// Raising the fatal error is left to the scheduler
	fatal.none(t)
}

func TestConsumerTransmitFailureIsFatalOnce(t *testing.T) {
	fatal := recordFatal(t)
	ch := &fakeChannel{}
	ch.setErr(errors.New("fifo stalled"))
	bus := NewBus("operations", BusOperations, 0, ch)

	s := NewScheduler()
	bus.Spawn(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	want := "elevated task operations consumer: operations transmit: fifo stalled"
	if msg := fatal.wait(t, time.Second); msg != want {
		t.Errorf("Unexpected fatal message %q", msg)
	}
	s.Wait()
	fatal.none(t)
}

func TestConsumerCancelNotFatal(t *testing.T) {
	fatal := recordFatal(t)
	ch := &fakeChannel{delay: time.Second}
	consumer := NewConsumer("ops", BusOperations, NewSlot("ops"), ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	fatal.none(t)
}
