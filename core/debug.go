package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a transmission event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Bus       uint8  // Bus index (operations, service)
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtPacketBuilt  = 1 // Producer published a packet, v1=address v2=speed
	EvtSlotBusy     = 2 // Producer skipped a tick, slot still occupied
	EvtDrained      = 3 // Consumer transmitted a packet, v1=bit count
	EvtIdleFill     = 4 // Consumer transmitted idle filler
	EvtTransmitFail = 5 // Pulse channel rejected a sequence
	EvtFatal        = 6 // Fatal error raised
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync from the transmission path)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordTiming captures a timing event in the ring buffer. Safe to call
// from both transmission tasks at once.
func RecordTiming(eventType, bus uint8, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	clock := GetTime()
	CriticalSection(func() {
		idx := timingRingHead
		timingRing[idx] = TimingEvent{
			EventType: eventType,
			Bus:       bus,
			Clock:     clock,
			Value1:    value1,
			Value2:    value2,
		}
		timingRingHead = (idx + 1) % TimingRingSize
	})
}

// TimingSnapshot returns the recorded events from oldest to newest
func TimingSnapshot() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	CriticalSection(func() {
		start := timingRingHead
		for i := uint8(0); i < TimingRingSize; i++ {
			evt := timingRing[(start+i)%TimingRingSize]
			if evt.EventType != 0 {
				events = append(events, evt)
			}
		}
	})
	return events
}

// EventName returns the dump label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtPacketBuilt:
		return "PACKET"
	case EvtSlotBusy:
		return "SLOT_BUSY"
	case EvtDrained:
		return "DRAINED"
	case EvtIdleFill:
		return "IDLE"
	case EvtTransmitFail:
		return "TX_FAIL!"
	case EvtFatal:
		return "FATAL!"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error).
// It bypasses the enabled flag so post-mortems always reach the writer.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingSnapshot() {
		debugPrintln("[TIMING] " + EventName(evt.EventType) +
			" bus=" + itoa(int(evt.Bus)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	CriticalSection(func() {
		for i := range timingRing {
			timingRing[i] = TimingEvent{}
		}
		timingRingHead = 0
	})
}
