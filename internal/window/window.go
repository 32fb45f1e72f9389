// Package window holds the bidding-window policy. Everything here is a pure
// function of its inputs so that lifecycle, matching and sweep code share one
// definition of "open" instead of recomputing it inline.
package window

import "time"

// DefaultBidWindow is the canonical bidding window for a broadcast load.
const DefaultBidWindow = 25 * time.Minute

// Policy maps an auction's creation time to its close time.
type Policy struct {
	BidWindow time.Duration
}

// Default returns the 25-minute policy.
func Default() Policy {
	return Policy{BidWindow: DefaultBidWindow}
}

// ExpiryOf returns the instant bidding closes for an auction received at
// receivedAt.
func (p Policy) ExpiryOf(receivedAt time.Time) time.Time {
	return receivedAt.Add(p.BidWindow)
}

// Remaining returns the time left in the window, floored at zero.
func (p Policy) Remaining(now, receivedAt time.Time) time.Duration {
	left := p.ExpiryOf(receivedAt).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// IsOpen reports whether an auction is still biddable: not archived and
// strictly inside its window.
func (p Policy) IsOpen(now, receivedAt time.Time, archived bool) bool {
	return !archived && now.Before(p.ExpiryOf(receivedAt))
}
