package frag

// Drop reasons passed to Tracer.RecordDropped. These are not error
// values — nothing in this package returns a synchronous error to the
// caller for a malformed or stale fragment, per the wire contract: every
// bad input is silently discardable, and the tracer is the only place
// the reason is observable.
const (
	ReasonGraceExpired     = "grace-expired"
	ReasonInboundTimeout   = "inbound-timeout"
	ReasonOutboundStale    = "outbound-stale"
	ReasonShortFragment    = "short-fragment"
	ReasonMalformedHeader  = "malformed-header"
	ReasonUnknownType      = "unknown-type"
	ReasonDuplicateInGrace = "duplicate-in-grace"
)
