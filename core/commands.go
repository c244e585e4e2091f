package core

import (
	"sync/atomic"

	"dccstation/protocol"
)

// ResponseSender frames a message back to the host. *protocol.Transport
// satisfies it.
type ResponseSender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

var (
	globalTransport    ResponseSender
	globalResetHandler func()

	// resetPending defers a reset until the ACK has been written
	resetPending atomic.Bool
)

// InitCoreCommands registers the link bootstrap messages.
// Registration order matters: the host assumes identify_response is ID 0 and
// identify is ID 1 before it has read the dictionary.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s") // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_clock", "", handleGetClock)
	RegisterResponse("clock", "clock=%u")
	RegisterCommand("reset", "", handleReset)
}

func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleReset(_ *[]byte) error {
	resetPending.Store(true)
	return nil
}

// SendResponse sends a registered response through the global transport.
// Sending an unregistered response is a programming error and panics.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("core: response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

// SetGlobalTransport sets the transport used by SendResponse
func SetGlobalTransport(transport ResponseSender) {
	globalTransport = transport
}

// SetResetHandler sets the platform-specific reset handler
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// CheckPendingReset runs the reset handler if a reset was requested.
// Call it after pending output has been flushed.
func CheckPendingReset() {
	if resetPending.Load() && globalResetHandler != nil {
		globalResetHandler()
	}
}
