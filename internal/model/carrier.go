package model

import (
	"time"

	"github.com/google/uuid"
)

// CarrierProfile is the read-only identity projection the core consults.
// Profile management itself lives outside this service.
type CarrierProfile struct {
	CarrierID   uuid.UUID
	LegalName   string
	MCNumber    string
	ContactName *string
	Phone       *string
	CreatedAt   time.Time
}

// Preferences is a carrier's stated matching configuration. Carriers without
// a row get the defaults below on read.
type Preferences struct {
	CarrierID              uuid.UUID
	SimilarLoadAlerts      bool
	StatePreferences       []string
	DistanceThresholdMiles int
	MinMatchScore          int
	PrioritizeBackhaul     bool
	UpdatedAt              time.Time
}

// DefaultPreferences mirrors the defaults written for first-time carriers.
func DefaultPreferences(carrierID uuid.UUID) Preferences {
	return Preferences{
		CarrierID:              carrierID,
		SimilarLoadAlerts:      true,
		StatePreferences:       nil,
		DistanceThresholdMiles: 50,
		MinMatchScore:          70,
		PrioritizeBackhaul:     true,
	}
}

// Favorite marks an auction a carrier saved as a reference load. Favorites
// feed the similar_load scorer and the favorite-driven exact matching.
type Favorite struct {
	CarrierID     uuid.UUID
	AuctionNumber string
	CreatedAt     time.Time
}

// FavoriteRef pairs a carrier with one of their reference loads, for the
// favorite-driven matching pass across all carriers.
type FavoriteRef struct {
	CarrierID          uuid.UUID
	Auction            Auction
	PrioritizeBackhaul bool
}

// BidHistory summarizes a carrier's past offers, used by the market-fit
// sub-score. Zero TotalOffers means no history and scores neutral.
type BidHistory struct {
	TotalOffers   int64
	OffersOnTag   int64
	AvgDistanceMi float64
}
