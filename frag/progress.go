package frag

import "time"

// incomingRecord wraps a Reassembly with the retransmit-request bookkeeping
// and retains a grace-state tail after completion. live is nil exactly
// when the record is in grace: its transfer has already been released and
// only graceID remains, to recognize a re-delivered fragment as a
// duplicate rather than mistake it for a new transfer.
type incomingRecord struct {
	live              *Reassembly
	graceID           uint16
	inGrace           bool
	timestampAccessed time.Time
	retransmissions   uint
}

func newIncomingRecord(now time.Time, t *Reassembly) *incomingRecord {
	return &incomingRecord{live: t, timestampAccessed: now}
}

func (r *incomingRecord) id() uint16 {
	if r.live != nil {
		return r.live.ID()
	}
	return r.graceID
}

// enterGrace releases the owning transfer while keeping the record (and
// its id) alive so a re-delivered FRAGMENT can be recognized as a
// duplicate and re-acked rather than mistaken for a brand new transfer.
func (r *incomingRecord) enterGrace(now time.Time) {
	r.graceID = r.live.ID()
	r.live = nil
	r.inGrace = true
	r.timestampAccessed = now
}

func (r *incomingRecord) touch(now time.Time) {
	r.timestampAccessed = now
}

func (r *incomingRecord) retransmitDone(now time.Time) {
	r.timestampAccessed = now
	r.retransmissions++
}

// outgoingRecord wraps an Emission with the retransmit counter and last
// access timestamp. Unlike incomingRecord, an outgoing record is erased
// outright on ack — there is no grace tail, because we can be certain the
// peer received our data once its ack arrives.
type outgoingRecord struct {
	transfer          *Emission
	timestampAccessed time.Time
	retransmissions   uint
}

func newOutgoingRecord(now time.Time, t *Emission) *outgoingRecord {
	return &outgoingRecord{transfer: t, timestampAccessed: now}
}

func (r *outgoingRecord) touch(now time.Time) {
	r.timestampAccessed = now
}

func (r *outgoingRecord) retransmitDone(now time.Time) {
	r.timestampAccessed = now
	r.retransmissions++
}
