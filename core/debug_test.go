package core

import (
	"errors"
	"strings"
	"testing"
)

func captureDebug(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	t.Cleanup(func() {
		SetDebugWriter(func(string) {})
		SetDebugEnabled(false)
		SetFatalHandler(nil)
		ClearTimingRing()
	})
	return &lines
}

func TestTimingRingOrder(t *testing.T) {
	lines := captureDebug(t)
	ClearTimingRing()

	// Overfill so the oldest entries are overwritten
	for i := 0; i < TimingRingSize+4; i++ {
		SetTime(uint32(i))
		RecordTiming(EvtPacketBuilt, 0, uint32(i), 0)
	}

	events := TimingSnapshot()
	if len(events) != TimingRingSize {
		t.Fatalf("Expected %d events, got %d", TimingRingSize, len(events))
	}
	if events[0].Value1 != 4 {
		t.Errorf("Oldest event should be 4, got %d", events[0].Value1)
	}
	if last := events[len(events)-1]; last.Value1 != TimingRingSize+3 {
		t.Errorf("Newest event should be %d, got %d", TimingRingSize+3, last.Value1)
	}

	DumpTimingRing()
	if len(*lines) != TimingRingSize+2 {
		t.Errorf("Expected %d dump lines, got %d", TimingRingSize+2, len(*lines))
	}
	if !strings.Contains((*lines)[1], "PACKET") {
		t.Errorf("Unexpected dump line %q", (*lines)[1])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	lines := captureDebug(t)

	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(*lines) != 1 || (*lines)[0] != "shown" {
		t.Errorf("Unexpected debug output %v", *lines)
	}
}

func TestFatalDumpsAndCallsHandler(t *testing.T) {
	lines := captureDebug(t)
	ClearTimingRing()
	RecordTiming(EvtTransmitFail, 1, 0, 0)

	var got string
	SetFatalHandler(func(msg string) { got = msg })

	Fatal("operations transmit", errors.New("fifo stalled"))

	if got != "operations transmit: fifo stalled" {
		t.Errorf("Unexpected fatal message %q", got)
	}
	joined := strings.Join(*lines, "\n")
	if !strings.Contains(joined, "[FATAL] operations transmit") {
		t.Error("Fatal message not written")
	}
	if !strings.Contains(joined, "TX_FAIL!") {
		t.Error("Timing ring not dumped")
	}
}

func TestFatalPanicsByDefault(t *testing.T) {
	captureDebug(t)
	expectPanic(t, "encode", func() { Fatal("encode", nil) })
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", -28: "-28", 127: "127"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Errorf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("utoa(max) = %q", got)
	}
}
