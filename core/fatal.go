package core

// FatalHandler receives the final message of an unrecoverable failure
type FatalHandler func(msg string)

var fatalHandler FatalHandler = func(msg string) {
	panic(msg)
}

// SetFatalHandler replaces the panic that ends Fatal. Targets may install a
// watchdog reset; tests install a recorder. Passing nil restores the panic.
func SetFatalHandler(handler FatalHandler) {
	if handler == nil {
		handler = func(msg string) { panic(msg) }
	}
	fatalHandler = handler
}

// Fatal is the single exit for invariant violations and hardware transmit
// failures. It records the event, dumps the timing ring and hands over to the
// fatal handler, which by default panics. Callers must not rely on Fatal
// returning.
func Fatal(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	RecordTiming(EvtFatal, 0, 0, 0)
	if debugPrintln != nil {
		debugPrintln("[FATAL] " + msg)
	}
	DumpTimingRing()
	fatalHandler(msg)
}
