package model

import (
	"time"

	"github.com/google/uuid"
)

type OfferOutcome string

const (
	OfferOutcomePending   OfferOutcome = "pending"
	OfferOutcomeWon       OfferOutcome = "won"
	OfferOutcomeLost      OfferOutcome = "lost"
	OfferOutcomeCancelled OfferOutcome = "cancelled"
)

// Offer is a carrier's standing price against one auction. Amounts are
// integer minor-currency units; there is exactly one row per
// (auction, carrier) pair and a resubmission updates it in place.
type Offer struct {
	ID            int64
	AuctionNumber string
	CarrierID     uuid.UUID
	AmountCents   int64
	Notes         *string
	Outcome       OfferOutcome
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
