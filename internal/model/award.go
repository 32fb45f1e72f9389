package model

import (
	"time"

	"github.com/google/uuid"
)

// Award is the operator's binding selection of a winning offer. At most one
// exists per auction number; the winning amount is copied from the offer at
// award time and never re-derived.
type Award struct {
	ID                int64
	AuctionNumber     string
	WinnerCarrierID   uuid.UUID
	WinnerAmountCents int64
	MarginCents       *int64 // operator markup quoted to the shipper, optional
	AwardedBy         uuid.UUID
	Notes             *string
	AwardedAt         time.Time
}

// QuotedCents is the carrier price plus the operator margin, if any.
func (a Award) QuotedCents() int64 {
	if a.MarginCents == nil {
		return a.WinnerAmountCents
	}
	return a.WinnerAmountCents + *a.MarginCents
}
