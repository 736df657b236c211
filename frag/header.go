package frag

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the on-wire size in bytes of the fragment_8b16b header:
// type(1) + fragment(1) + fragments_total(1) + id(2) + prev_id(2).
const HeaderSize = 7

// Type identifies the purpose of a fragment on the wire.
type Type uint8

const (
	// TypeFragment carries a slice of a transfer's payload.
	TypeFragment Type = 1
	// TypeFragmentAck signals that a transfer was fully reassembled.
	TypeFragmentAck Type = 2
	// TypeFragmentReq asks the peer to resend one missing fragment.
	TypeFragmentReq Type = 3
)

func (t Type) known() bool {
	switch t {
	case TypeFragment, TypeFragmentAck, TypeFragmentReq:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TypeFragment:
		return "FRAGMENT"
	case TypeFragmentAck:
		return "FRAGMENT_ACK"
	case TypeFragmentReq:
		return "FRAGMENT_REQ"
	default:
		return "UNKNOWN"
	}
}

// ErrMalformedHeader is returned when a fragment is too short to contain a
// header, or the header fields fail validation.
var ErrMalformedHeader = errors.New("frag: malformed header")

// Header is the fixed-size control header prefixed to every on-link
// fragment. Multi-byte fields are big-endian.
type Header struct {
	Type           Type
	Fragment       uint8
	FragmentsTotal uint8
	ID             uint16
	PrevID         uint16
}

// IsValid enforces the range checks the wire format requires: a known
// type, a non-zero total, and a fragment index within [1, total].
func (h Header) IsValid() bool {
	if !h.Type.known() {
		return false
	}
	if h.FragmentsTotal < 1 {
		return false
	}
	if h.Fragment < 1 || h.Fragment > h.FragmentsTotal {
		return false
	}
	return true
}

// Encode serializes the header into its 7-byte wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.Type)
	buf[1] = h.Fragment
	buf[2] = h.FragmentsTotal
	binary.BigEndian.PutUint16(buf[3:5], h.ID)
	binary.BigEndian.PutUint16(buf[5:7], h.PrevID)
	return buf
}

// DecodeHeader parses a header from the front of b and validates it.
// Parse failures and invalid headers both return ErrMalformedHeader; the
// caller's only recourse, per the wire contract, is to drop the fragment.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrMalformedHeader
	}
	h := Header{
		Type:           Type(b[0]),
		Fragment:       b[1],
		FragmentsTotal: b[2],
		ID:             binary.BigEndian.Uint16(b[3:5]),
		PrevID:         binary.BigEndian.Uint16(b[5:7]),
	}
	if !h.IsValid() {
		return Header{}, ErrMalformedHeader
	}
	return h, nil
}
