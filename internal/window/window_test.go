package window

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestExpiryOf(t *testing.T) {
	p := Default()
	received := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	check.Equal(t, time.Date(2025, 3, 10, 12, 25, 0, 0, time.UTC), p.ExpiryOf(received))
}

func TestIsOpen_Boundaries(t *testing.T) {
	p := Default()
	received := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expiry := p.ExpiryOf(received)

	check.True(t, p.IsOpen(received, received, false))
	check.True(t, p.IsOpen(expiry.Add(-time.Second), received, false))

	// Closed at the exact expiry instant and beyond.
	check.False(t, p.IsOpen(expiry, received, false))
	check.False(t, p.IsOpen(expiry.Add(time.Hour), received, false))

	// Archived is closed regardless of the clock.
	check.False(t, p.IsOpen(received, received, true))
}

func TestRemaining(t *testing.T) {
	p := Policy{BidWindow: 10 * time.Minute}
	received := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	check.Equal(t, 10*time.Minute, p.Remaining(received, received))
	check.Equal(t, 4*time.Minute, p.Remaining(received.Add(6*time.Minute), received))

	// Floored at zero after expiry.
	check.Equal(t, time.Duration(0), p.Remaining(received.Add(time.Hour), received))
}
