package link

import "github.com/ghendry/fragtp/frag"

// LoopbackLink is an in-memory Link that delivers writes straight to a
// paired LoopbackLink's receive callback. Tests use it to drive both
// sides of the protocol without touching a socket, and to flip transmit
// slots to zero and back to exercise backpressure deterministically.
type LoopbackLink struct {
	maxDataSize int
	peer        *LoopbackLink
	slots       int
	onReceive   ReceiveFunc
	onStatus    StatusFunc
}

// NewLoopbackPair returns two LoopbackLinks wired to each other, each
// enforcing maxDataSize and starting with one available transmit slot.
func NewLoopbackPair(maxDataSize int) (a, b *LoopbackLink) {
	a = &LoopbackLink{maxDataSize: maxDataSize, slots: 1}
	b = &LoopbackLink{maxDataSize: maxDataSize, slots: 1}
	a.peer, b.peer = b, a
	return a, b
}

func (l *LoopbackLink) MaxDataSize() int { return l.maxDataSize }

func (l *LoopbackLink) Write(f frag.Fragment) bool {
	if f.Len() > l.maxDataSize {
		return false
	}
	if l.slots == 0 {
		return false
	}
	if l.peer != nil && l.peer.onReceive != nil {
		l.peer.onReceive(f)
	}
	return true
}

func (l *LoopbackLink) OnReceive(fn ReceiveFunc) { l.onReceive = fn }

func (l *LoopbackLink) OnStatus(fn StatusFunc) {
	l.onStatus = fn
	if fn != nil {
		fn(frag.InterfaceStatus{AvailableTransmitSlots: l.slots})
	}
}

// SetSlots changes the link's reported available transmit slots and
// fires the status callback, the same way a real link would announce a
// full queue draining.
func (l *LoopbackLink) SetSlots(n int) {
	l.slots = n
	if l.onStatus != nil {
		l.onStatus(frag.InterfaceStatus{AvailableTransmitSlots: n})
	}
}
