package model

import (
	"time"
)

// Auction is a freight load broadcast for a fixed bidding window.
// AuctionNumber is the business key; there is no surrogate identity
// anywhere above the storage layer.
type Auction struct {
	AuctionNumber string
	Stops         []string // ordered route, first = origin, last = destination
	DistanceMiles int
	PickupAt      *time.Time
	DeliveryAt    *time.Time
	Tag           string // coarse region/state tag used for matching
	ReceivedAt    time.Time
	Archived      bool
	ArchivedAt    *time.Time
}

// AuctionStatus is the lifecycle state derived from the window, the award
// table and the archived flag. It is never stored.
type AuctionStatus string

const (
	StatusOpen             AuctionStatus = "OPEN"
	StatusAwarded          AuctionStatus = "AWARDED"
	StatusExpiredUnawarded AuctionStatus = "EXPIRED_UNAWARDED"
	StatusArchived         AuctionStatus = "ARCHIVED"
)

// Origin returns the first stop, or "" for a malformed route.
func (a Auction) Origin() string {
	if len(a.Stops) == 0 {
		return ""
	}
	return a.Stops[0]
}

// Destination returns the last stop, or "" for a malformed route.
func (a Auction) Destination() string {
	if len(a.Stops) == 0 {
		return ""
	}
	return a.Stops[len(a.Stops)-1]
}
