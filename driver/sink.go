package driver

import (
	"github.com/ghendry/fragtp/frag"
	"github.com/ghendry/fragtp/link"
)

// linkSink adapts a frag.Sink so that OnFragmentOut actually reaches the
// wire: every other event is passed through to the application's own
// sink untouched. A fragment withheld by the holdoff limiter is simply
// dropped here — the engine's own retransmit/probe logic in Tick will
// eventually re-emit it, exactly as if the link itself had dropped it.
type linkSink struct {
	link    link.Link
	holdoff *HoldoffLimiter
	app     frag.Sink
}

func newLinkSink(lk link.Link, holdoff *HoldoffLimiter, app frag.Sink) *linkSink {
	if app == nil {
		app = frag.DiscardSink{}
	}
	return &linkSink{link: lk, holdoff: holdoff, app: app}
}

func (s *linkSink) OnFragmentOut(f frag.Fragment) {
	if s.holdoff != nil && !s.holdoff.Allow(f.Destination) {
		return
	}
	s.link.Write(f)
}

func (s *linkSink) OnTransferReceived(r frag.ReceivedTransfer) { s.app.OnTransferReceived(r) }
func (s *linkSink) OnTransferAcked(m frag.Metadata)            { s.app.OnTransferAcked(m) }
