package frag

// Tracer is a hook the engine calls at every internal state transition,
// regardless of build configuration; it's the caller's choice whether an
// implementation does anything with a given call. Defaults to NopTracer.
type Tracer interface {
	TransferCreated(id uint16, peer Address)
	FragmentAssigned(id uint16, index uint8)
	TransferCompleted(id uint16)
	TransferAcked(id uint16)
	RetransmitRequested(id uint16, index uint8)
	RetransmitSent(id uint16)
	RecordDropped(id uint16, reason string)
}

// NopTracer implements Tracer with empty methods.
type NopTracer struct{}

func (NopTracer) TransferCreated(uint16, Address)     {}
func (NopTracer) FragmentAssigned(uint16, uint8)       {}
func (NopTracer) TransferCompleted(uint16)             {}
func (NopTracer) TransferAcked(uint16)                 {}
func (NopTracer) RetransmitRequested(uint16, uint8)    {}
func (NopTracer) RetransmitSent(uint16)                {}
func (NopTracer) RecordDropped(uint16, string)         {}
