package link

import (
	"net"

	"github.com/ghendry/fragtp/frag"
)

// UDPLink is a point-to-point Link backed by a UDP socket: one local
// address, one fixed peer, a bounded transmit queue drained by a
// background loop. Session bookkeeping and fragmentation live one layer
// up, in the frag and driver packages.
type UDPLink struct {
	conn        *net.UDPConn
	remote      *net.UDPAddr
	maxDataSize int
	queueDepth  int
	queue       chan frag.Fragment
	onReceive   ReceiveFunc
	onStatus    StatusFunc
	closed      chan struct{}
}

// NewUDPLink binds localAddr and fixes remoteAddr as the link's only
// peer. maxDataSize bounds both the receive buffer and what Write
// accepts; queueDepth bounds how many pending writes can queue before
// Write starts returning false.
func NewUDPLink(localAddr, remoteAddr string, maxDataSize, queueDepth int) (*UDPLink, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		conn.Close()
		return nil, err
	}

	l := &UDPLink{
		conn:        conn,
		remote:      remote,
		maxDataSize: maxDataSize,
		queueDepth:  queueDepth,
		queue:       make(chan frag.Fragment, queueDepth),
		closed:      make(chan struct{}),
	}
	go l.sendLoop()
	go l.listen()
	return l, nil
}

func (l *UDPLink) MaxDataSize() int { return l.maxDataSize }

// Write enqueues f for the send loop. It never blocks: a full queue
// means the transmit slots are exhausted and the caller must wait for
// the next status update.
func (l *UDPLink) Write(f frag.Fragment) bool {
	if f.Len() > l.maxDataSize {
		return false
	}
	select {
	case l.queue <- f:
		l.reportStatus()
		return true
	default:
		return false
	}
}

func (l *UDPLink) sendLoop() {
	for {
		select {
		case <-l.closed:
			return
		case f := <-l.queue:
			l.conn.WriteToUDP(f.Payload, l.remote)
			l.reportStatus()
		}
	}
}

func (l *UDPLink) listen() {
	buf := make([]byte, l.maxDataSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			// conn.Close() was almost certainly the cause.
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		if l.onReceive != nil {
			l.onReceive(frag.Fragment{
				Source:      frag.Address(addr.String()),
				Destination: frag.Address(l.conn.LocalAddr().String()),
				Payload:     data,
			})
		}
	}
}

func (l *UDPLink) reportStatus() {
	if l.onStatus != nil {
		l.onStatus(frag.InterfaceStatus{AvailableTransmitSlots: l.queueDepth - len(l.queue)})
	}
}

func (l *UDPLink) OnReceive(fn ReceiveFunc) { l.onReceive = fn }

func (l *UDPLink) OnStatus(fn StatusFunc) {
	l.onStatus = fn
	l.reportStatus()
}

// Close shuts down the socket and stops the send loop.
func (l *UDPLink) Close() error {
	close(l.closed)
	return l.conn.Close()
}
