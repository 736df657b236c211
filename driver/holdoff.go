package driver

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/ghendry/fragtp/frag"
)

// HoldoffLimiter is the outer, driver-level throttle: a per-peer token
// bucket that withholds delivery of outgoing fragments to a peer that's
// asked us to back off, without the engine itself ever seeing anything
// but its own slots-based flow control. It is not congestion control —
// there's no feedback loop adjusting the rate — just a fixed hint
// applied per destination.
type HoldoffLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[frag.Address]*rate.Limiter
}

// NewHoldoffLimiter builds a limiter that allows r fragments per second,
// per peer, with burst headroom of burst.
func NewHoldoffLimiter(r rate.Limit, burst int) *HoldoffLimiter {
	return &HoldoffLimiter{
		rate:     r,
		burst:    burst,
		limiters: make(map[frag.Address]*rate.Limiter),
	}
}

// Allow reports whether a fragment bound for peer may go out now,
// lazily creating that peer's bucket on first use.
func (h *HoldoffLimiter) Allow(peer frag.Address) bool {
	h.mu.Lock()
	l, ok := h.limiters[peer]
	if !ok {
		l = rate.NewLimiter(h.rate, h.burst)
		h.limiters[peer] = l
	}
	h.mu.Unlock()
	return l.Allow()
}
