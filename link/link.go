// Package link defines the external link-interface contract the
// fragmentation engine is built against, plus an in-memory LoopbackLink
// used by the driver's tests and a socket-backed UDPLink used by the
// demo CLI.
package link

import "github.com/ghendry/fragtp/frag"

// ReceiveFunc is called once per fragment the link has received.
type ReceiveFunc func(frag.Fragment)

// StatusFunc is called whenever the link's transmit slot count changes.
type StatusFunc func(frag.InterfaceStatus)

// Link is the collaborator contract an engine is bound against: it
// enforces the MTU, accepts non-blocking writes, and notifies the
// engine of received fragments and status changes via callbacks
// registered once at construction — the same subject/subscriber shape
// the engine itself uses for its own event sinks.
type Link interface {
	// MaxDataSize returns the link's MTU in bytes, header included.
	MaxDataSize() int
	// Write attempts to push a fragment onto the link. It must not
	// block; it returns false if the transmit queue is full.
	Write(f frag.Fragment) bool
	// OnReceive registers the callback invoked for each received
	// fragment. Only one callback is kept; the most recent call wins.
	OnReceive(ReceiveFunc)
	// OnStatus registers the callback invoked on transmit-slot changes.
	OnStatus(StatusFunc)
}
