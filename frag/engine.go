// Package frag implements the fragmentation engine: a bidirectional,
// event-driven reassembly and retransmission state machine that sits
// between an unreliable, fragment-oriented link and the application. The
// engine is single-threaded and lock-free by design — callers must
// serialize their own calls into ReceiveFragment, Transmit and Tick, the
// three entry points, the same way the link driver package in this
// module serializes them from its own goroutines.
package frag

import "time"

// DefaultGraceMultiplier is the number of DropTime intervals a completed
// incoming record lingers in grace before it is finally erased. Used
// when Config.GraceMultiplier is left at zero.
const DefaultGraceMultiplier = 5

// InterfaceStatus mirrors the link's last reported status. Only the slot
// count matters to the engine's flow control.
type InterfaceStatus struct {
	AvailableTransmitSlots int
}

// Config holds the engine's immutable construction-time parameters.
type Config struct {
	// InterfaceIdentifier tags fragments this engine originates.
	InterfaceIdentifier Address
	// MaxFragmentSize is the link's max_data_size (its MTU). The engine
	// subtracts HeaderSize to get the per-fragment payload budget.
	MaxFragmentSize int
	// RetransmitTime is the idle interval before a missing fragment is
	// chased with a REQ, and before an idle outbound transfer probes
	// with a retransmit of its first fragment.
	RetransmitTime time.Duration
	// DropTime is the idle interval after which a transfer is abandoned.
	DropTime time.Duration
	// RetransmitMultiplier caps Tick's idle-probe retransmissions of an
	// outgoing transfer at fragments_count * RetransmitMultiplier.
	// Fragments resent in answer to a peer's REQ are not capped, though
	// they count towards the same total.
	RetransmitMultiplier uint
	// GraceMultiplier overrides DefaultGraceMultiplier when non-zero.
	GraceMultiplier uint
}

func (c Config) graceMultiplier() uint {
	if c.GraceMultiplier == 0 {
		return DefaultGraceMultiplier
	}
	return c.GraceMultiplier
}

// Snapshot is a point-in-time dump of both tables, for diagnostics: a
// plain value the caller's own logger decides how to render.
type Snapshot struct {
	IncomingIDs []uint16
	OutgoingIDs []uint16
}

// Engine is the fragmentation handler. Zero value is not usable; build
// one with NewEngine.
type Engine struct {
	cfg             Config
	maxFragmentSize int
	clock           Clock
	sink            Sink
	tracer          Tracer

	incoming []*incomingRecord
	outgoing []*outgoingRecord

	status    InterfaceStatus
	idCounter uint16
	prevIDs   map[Address]uint16
}

// NewEngine constructs an Engine bound to cfg, clock and sink. Tracer
// defaults to a no-op and can be overridden with SetTracer.
func NewEngine(cfg Config, clock Clock, sink Sink) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Engine{
		cfg:             cfg,
		maxFragmentSize: cfg.MaxFragmentSize - HeaderSize,
		clock:           clock,
		sink:            sink,
		tracer:          NopTracer{},
		prevIDs:         make(map[Address]uint16),
	}
}

// SetTracer installs t as the engine's tracing hook. A nil t restores
// the no-op tracer.
func (e *Engine) SetTracer(t Tracer) {
	if t == nil {
		t = NopTracer{}
	}
	e.tracer = t
}

// MaxFragmentSize returns the per-fragment payload budget, after the
// header has been accounted for.
func (e *Engine) MaxFragmentSize() int { return e.maxFragmentSize }

// UpdateInterfaceStatus records the link's most recently observed status.
// This is the engine's half of the status_event subscription described
// in the external interface contract.
func (e *Engine) UpdateInterfaceStatus(status InterfaceStatus) {
	e.status = status
}

func (e *Engine) canTransmit() bool {
	return e.status.AvailableTransmitSlots != 0
}

func (e *Engine) emit(f Fragment) {
	e.sink.OnFragmentOut(f)
}

func (e *Engine) emitFragment(t *Emission, index uint8) {
	payload, err := t.GetFragment(index)
	if err != nil {
		return
	}
	h := Header{
		Type: TypeFragment, Fragment: index, FragmentsTotal: t.FragmentsCount(),
		ID: t.ID(), PrevID: t.PrevID(),
	}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, h.Encode()...)
	buf = append(buf, payload...)
	e.emit(Fragment{Source: t.Source(), Destination: t.Destination(), Payload: buf})
}

func (e *Engine) emitControl(typ Type, fragment, total uint8, id, prevID uint16, dest Address) {
	h := Header{Type: typ, Fragment: fragment, FragmentsTotal: total, ID: id, PrevID: prevID}
	e.emit(Fragment{Source: e.cfg.InterfaceIdentifier, Destination: dest, Payload: h.Encode()})
}

// ReceiveFragment is the link's receive callback: it parses the header,
// strips it, and dispatches by type. Malformed input is dropped with no
// user-visible signal beyond the tracer.
func (e *Engine) ReceiveFragment(f Fragment) {
	if len(f.Payload) < HeaderSize {
		e.tracer.RecordDropped(0, ReasonShortFragment)
		return
	}
	h, err := DecodeHeader(f.Payload)
	if err != nil {
		e.tracer.RecordDropped(0, ReasonMalformedHeader)
		return
	}
	f.Payload = f.Payload[HeaderSize:]
	switch h.Type {
	case TypeFragment:
		e.handleIncomingFragment(h, f)
	case TypeFragmentReq:
		e.handleRetransmitRequest(h, f)
	case TypeFragmentAck:
		e.handleAck(h, f)
	default:
		e.tracer.RecordDropped(h.ID, ReasonUnknownType)
	}
}

func (e *Engine) handleIncomingFragment(h Header, f Fragment) {
	now := e.clock.Now()
	for _, rec := range e.incoming {
		if rec.live != nil {
			if rec.live.ID() == h.ID && rec.live.Match(f) {
				_ = rec.live.Assign(now, h.Fragment, f.Payload)
				e.tracer.FragmentAssigned(h.ID, h.Fragment)
				return
			}
			continue
		}
		if rec.inGrace && rec.graceID == h.ID {
			if e.canTransmit() {
				e.emitControl(TypeFragmentAck, h.Fragment, h.FragmentsTotal, h.ID, h.PrevID, f.Source)
			}
			e.tracer.RecordDropped(h.ID, ReasonDuplicateInGrace)
			return
		}
	}

	t := NewReassembly(now, f.Source, f.Destination, h)
	rec := newIncomingRecord(now, t)
	e.incoming = append(e.incoming, rec)
	_ = t.Assign(now, h.Fragment, f.Payload)
	e.tracer.TransferCreated(h.ID, f.Source)
	e.tracer.FragmentAssigned(h.ID, h.Fragment)
}

func (e *Engine) handleRetransmitRequest(h Header, f Fragment) {
	for _, rec := range e.outgoing {
		if rec.transfer.ID() == h.ID && rec.transfer.MatchAsResponse(f) {
			if e.canTransmit() {
				e.emitFragment(rec.transfer, h.Fragment)
				rec.retransmitDone(e.clock.Now())
				e.tracer.RetransmitSent(h.ID)
			}
			return
		}
	}
}

func (e *Engine) handleAck(h Header, f Fragment) {
	for i, rec := range e.outgoing {
		if rec.transfer.ID() == h.ID && rec.transfer.MatchAsResponse(f) {
			meta := rec.transfer.Metadata()
			e.outgoing = append(e.outgoing[:i], e.outgoing[i+1:]...)
			e.sink.OnTransferAcked(meta)
			e.tracer.TransferAcked(h.ID)
			return
		}
	}
}

// Transmit moves payload into a new outgoing transfer addressed to
// destination, and emits as much of its first burst of fragments as the
// link's transmit slots allow. The returned metadata lets the caller
// correlate a later OnTransferAcked with this call.
func (e *Engine) Transmit(destination Address, payload []byte) Metadata {
	now := e.clock.Now()
	e.idCounter++
	id := e.idCounter
	prevID := e.prevIDs[destination]
	e.prevIDs[destination] = id

	t := NewEmission(now, e.cfg.InterfaceIdentifier, destination, id, prevID, payload, e.maxFragmentSize)
	rec := newOutgoingRecord(now, t)
	e.outgoing = append(e.outgoing, rec)
	e.tracer.TransferCreated(id, destination)

	count := t.FragmentsCount()
	for i := uint8(1); i <= count; i++ {
		if !e.canTransmit() {
			break
		}
		e.emitFragment(t, i)
	}
	rec.touch(e.clock.Now())
	return t.Metadata()
}

// Tick runs the periodic housekeeping pass: retransmits, retransmit
// requests, completion acks and events, and drop decisions, across both
// tables. It tolerates mid-pass erasures by only advancing the index on
// branches that didn't erase the current record.
func (e *Engine) Tick() {
	now := e.clock.Now()

	i := 0
	for i < len(e.incoming) {
		rec := e.incoming[i]
		switch {
		case rec.live == nil:
			if olderThan(now, rec.timestampAccessed, e.cfg.DropTime*time.Duration(e.cfg.graceMultiplier())) {
				e.tracer.RecordDropped(rec.graceID, ReasonGraceExpired)
				e.incoming = append(e.incoming[:i], e.incoming[i+1:]...)
				continue
			}

		case rec.live.IsComplete() && e.canTransmit():
			meta := rec.live.Metadata()
			e.emitControl(TypeFragmentAck, meta.FragmentsCount, meta.FragmentsCount, meta.ID, meta.PrevID, rec.live.Source())
			e.sink.OnTransferReceived(ReceivedTransfer{Metadata: meta, Payload: rec.live.Payload()})
			e.tracer.TransferCompleted(meta.ID)
			rec.enterGrace(now)

		case olderThan(now, rec.live.TimestampModified(), e.cfg.DropTime):
			e.tracer.RecordDropped(rec.live.ID(), ReasonInboundTimeout)
			e.incoming = append(e.incoming[:i], e.incoming[i+1:]...)
			continue

		case e.canTransmit() &&
			olderThan(now, rec.live.TimestampModified(), e.cfg.RetransmitTime) &&
			olderThan(now, rec.timestampAccessed, e.cfg.RetransmitTime):
			idx := rec.live.MissingFragment()
			e.emitControl(TypeFragmentReq, idx, rec.live.FragmentsCount(), rec.live.ID(), rec.live.PrevID(), rec.live.Source())
			rec.retransmitDone(now)
			e.tracer.RetransmitRequested(rec.live.ID(), idx)
		}
		i++
	}

	j := 0
	for j < len(e.outgoing) {
		rec := e.outgoing[j]
		switch {
		case olderThan(now, rec.timestampAccessed, e.cfg.DropTime):
			e.tracer.RecordDropped(rec.transfer.ID(), ReasonOutboundStale)
			e.outgoing = append(e.outgoing[:j], e.outgoing[j+1:]...)
			continue

		case e.canTransmit() &&
			rec.retransmissions < uint(rec.transfer.FragmentsCount())*e.cfg.RetransmitMultiplier &&
			olderThan(now, rec.timestampAccessed, e.cfg.RetransmitTime):
			e.emitFragment(rec.transfer, 1)
			rec.retransmitDone(now)
			e.tracer.RetransmitSent(rec.transfer.ID())
		}
		j++
	}
}

// DebugSnapshot reports both tables' current ids, for diagnostics.
func (e *Engine) DebugSnapshot() Snapshot {
	s := Snapshot{
		IncomingIDs: make([]uint16, 0, len(e.incoming)),
		OutgoingIDs: make([]uint16, 0, len(e.outgoing)),
	}
	for _, rec := range e.incoming {
		s.IncomingIDs = append(s.IncomingIDs, rec.id())
	}
	for _, rec := range e.outgoing {
		s.OutgoingIDs = append(s.OutgoingIDs, rec.transfer.ID())
	}
	return s
}
