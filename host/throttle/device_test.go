package throttle

import (
	"net"
	"sync"
	"testing"

	"dccstation/core"
	"dccstation/link"
	"dccstation/protocol"
	"dccstation/transmit"
)

var registerOnce sync.Once

type counters struct{ drained, idles uint32 }

func (c counters) Drained() uint32 { return c.drained }
func (c counters) Idles() uint32   { return c.idles }

// startDevice runs the controller's link on one end of a pipe and returns
// the other end and the command state it drives
func startDevice(t *testing.T) (net.Conn, *core.Global[transmit.CommandState]) {
	t.Helper()
	registerOnce.Do(core.InitCoreCommands)

	state := transmit.NewCommandStateCell()
	link.Init(state, counters{drained: 11, idles: 5})

	hostEnd, deviceEnd := net.Pipe()
	out := protocol.NewScratchOutput()
	tr := protocol.NewTransport(out, core.DispatchCommand)
	core.SetGlobalTransport(tr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fifo := protocol.NewFifoBuffer(256)
		buf := make([]byte, 64)
		for {
			n, err := deviceEnd.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			tr.Receive(fifo)
			if len(out.Result()) > 0 {
				if _, err := deviceEnd.Write(out.Result()); err != nil {
					return
				}
				out.Reset()
			}
		}
	}()

	t.Cleanup(func() {
		deviceEnd.Close()
		<-done
		core.SetGlobalTransport(nil)
	})
	return hostEnd, state
}
