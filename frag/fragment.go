package frag

// Address identifies a link-local endpoint. It is opaque to the engine;
// the link driver decides what it means (a UDP address, a serial port
// tag, a radio callsign, ...).
type Address string

// Fragment is one link-sized datagram: a peer address, the direction the
// fragment is travelling, and the payload bytes (header still attached
// on the wire, stripped by the time Fragment reaches engine internals).
type Fragment struct {
	// Source is who sent this fragment (set on receive, the local
	// interface identifier on transmit).
	Source Address
	// Destination is who should receive this fragment.
	Destination Address
	// Payload is the fragment's bytes: the control header followed by the
	// data while on the link; ReceiveFragment strips the header before
	// its handlers see it.
	Payload []byte
}

// Len returns the fragment's on-wire size, for links that must reject a
// write exceeding their MTU rather than silently truncating it.
func (f Fragment) Len() int { return len(f.Payload) }
