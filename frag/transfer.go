package frag

import (
	"errors"
	"time"
)

// ErrIndexOutOfRange is returned by Emission.GetFragment for an index of
// zero or one that runs past the end of the emission's payload.
var ErrIndexOutOfRange = errors.New("frag: fragment index out of range")

// Metadata is the lightweight summary of a transfer carried by the
// transfer-acked event — the caller already handed the payload to the
// engine in Transmit and got this Metadata back, so the ack only needs
// enough to correlate with that call afterward.
type Metadata struct {
	ID             uint16
	PrevID         uint16
	Source         Address
	Destination    Address
	FragmentsCount uint8
}

// endpoints is the shared source/destination compatibility check used by
// both transfer modes. Match compares a fragment against the transfer as
// received; MatchAsResponse swaps the roles, for checking a REQ/ACK that
// travels back from the original destination.
type endpoints struct {
	source      Address
	destination Address
}

func (e endpoints) match(f Fragment) bool {
	return f.Source == e.source && f.Destination == e.destination
}

func (e endpoints) matchAsResponse(f Fragment) bool {
	return f.Source == e.destination && f.Destination == e.source
}

// Reassembly is a transfer being rebuilt from incoming fragments. It owns
// N preallocated slots, sized from the first fragment's header, filled in
// as further fragments arrive.
type Reassembly struct {
	endpoints
	id, prevID        uint16
	slots             [][]byte
	timestampModified time.Time
}

// NewReassembly creates an empty reassembly transfer from the header of
// the fragment that introduced a previously-unknown id.
func NewReassembly(now time.Time, peer, local Address, h Header) *Reassembly {
	return &Reassembly{
		endpoints:         endpoints{source: peer, destination: local},
		id:                h.ID,
		prevID:            h.PrevID,
		slots:             make([][]byte, h.FragmentsTotal),
		timestampModified: now,
	}
}

// Assign places payload at the given 1-based index. Re-delivery of an
// already-filled slot is silently idempotent and does not advance
// timestampModified.
func (r *Reassembly) Assign(now time.Time, index uint8, payload []byte) error {
	if index < 1 || int(index) > len(r.slots) {
		return ErrIndexOutOfRange
	}
	if r.slots[index-1] != nil {
		return nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.slots[index-1] = cp
	r.timestampModified = now
	return nil
}

// IsComplete reports whether every slot has been filled.
func (r *Reassembly) IsComplete() bool {
	for _, s := range r.slots {
		if s == nil {
			return false
		}
	}
	return true
}

// MissingFragment returns the lowest empty 1-based index, or 0 if complete.
func (r *Reassembly) MissingFragment() uint8 {
	for i, s := range r.slots {
		if s == nil {
			return uint8(i + 1)
		}
	}
	return 0
}

// Payload concatenates the filled slots into the reassembled transfer.
// Only valid once IsComplete reports true.
func (r *Reassembly) Payload() []byte {
	n := 0
	for _, s := range r.slots {
		n += len(s)
	}
	out := make([]byte, 0, n)
	for _, s := range r.slots {
		out = append(out, s...)
	}
	return out
}

func (r *Reassembly) FragmentsCount() uint8         { return uint8(len(r.slots)) }
func (r *Reassembly) ID() uint16                    { return r.id }
func (r *Reassembly) PrevID() uint16                { return r.prevID }
func (r *Reassembly) Source() Address               { return r.endpoints.source }
func (r *Reassembly) Destination() Address          { return r.endpoints.destination }
func (r *Reassembly) TimestampModified() time.Time  { return r.timestampModified }
func (r *Reassembly) Match(f Fragment) bool         { return r.endpoints.match(f) }

func (r *Reassembly) Metadata() Metadata {
	return Metadata{
		ID: r.id, PrevID: r.prevID,
		Source: r.endpoints.source, Destination: r.endpoints.destination,
		FragmentsCount: r.FragmentsCount(),
	}
}

// Emission is a transfer being split into outgoing fragments on demand
// from a single contiguous payload buffer.
type Emission struct {
	endpoints
	id, prevID        uint16
	payload           []byte
	maxFragmentSize   int
	timestampModified time.Time
}

// NewEmission creates a transfer owning payload, to be sent to
// destination from local, identified by id (with prevID referencing the
// previous transfer sent to this peer, for match disambiguation).
func NewEmission(now time.Time, local, destination Address, id, prevID uint16, payload []byte, maxFragmentSize int) *Emission {
	return &Emission{
		endpoints:         endpoints{source: local, destination: destination},
		id:                id,
		prevID:            prevID,
		payload:           payload,
		maxFragmentSize:   maxFragmentSize,
		timestampModified: now,
	}
}

// FragmentsCount returns ceil(len(payload) / maxFragmentSize), floored at
// 1 so even an empty payload occupies one fragment.
func (e *Emission) FragmentsCount() uint8 {
	n := len(e.payload) / e.maxFragmentSize
	if len(e.payload)%e.maxFragmentSize != 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return uint8(n)
}

// GetFragment materializes fragment index (1-based) from the payload
// buffer on demand.
func (e *Emission) GetFragment(index uint8) ([]byte, error) {
	if index == 0 {
		return nil, ErrIndexOutOfRange
	}
	offset := int(index-1) * e.maxFragmentSize
	if offset >= len(e.payload) && !(offset == 0 && len(e.payload) == 0) {
		return nil, ErrIndexOutOfRange
	}
	end := offset + e.maxFragmentSize
	if end > len(e.payload) {
		end = len(e.payload)
	}
	return e.payload[offset:end], nil
}

func (e *Emission) ID() uint16                   { return e.id }
func (e *Emission) PrevID() uint16                { return e.prevID }
func (e *Emission) Source() Address              { return e.endpoints.source }
func (e *Emission) Destination() Address         { return e.endpoints.destination }
func (e *Emission) TimestampModified() time.Time { return e.timestampModified }
func (e *Emission) touch(now time.Time)          { e.timestampModified = now }
func (e *Emission) MatchAsResponse(f Fragment) bool {
	return e.endpoints.matchAsResponse(f)
}

func (e *Emission) Metadata() Metadata {
	return Metadata{
		ID: e.id, PrevID: e.prevID,
		Source: e.endpoints.source, Destination: e.endpoints.destination,
		FragmentsCount: e.FragmentsCount(),
	}
}
