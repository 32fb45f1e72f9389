package model

import (
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerSimilarLoad         TriggerType = "similar_load"
	TriggerExactMatch          TriggerType = "exact_match"
	TriggerFavoriteAvailable   TriggerType = "favorite_available"
	TriggerNewRoute            TriggerType = "new_route"
	TriggerDeadlineApproaching TriggerType = "deadline_approaching"
)

// KnownTriggerTypes lists every trigger kind the dispatcher handles. Adding
// a kind here without extending the worker switch fails the exhaustiveness
// test in the matching package.
var KnownTriggerTypes = []TriggerType{
	TriggerSimilarLoad,
	TriggerExactMatch,
	TriggerFavoriteAvailable,
	TriggerNewRoute,
	TriggerDeadlineApproaching,
}

type MatchKind string

const (
	MatchKindExact MatchKind = "exact"
	MatchKindState MatchKind = "state"
)

// TriggerConfig is the type-specific configuration blob stored as jsonb.
// Only the fields relevant to the trigger's type are populated.
type TriggerConfig struct {
	FavoriteAuctionNumber  string    `json:"favoriteAuctionNumber,omitempty"`
	MatchKind              MatchKind `json:"matchKind,omitempty"`
	StatePreferences       []string  `json:"statePreferences,omitempty"`
	DistanceThresholdMiles int       `json:"distanceThresholdMiles,omitempty"`
	BackhaulEnabled        bool      `json:"backhaulEnabled,omitempty"`
}

// Trigger is a carrier's standing notification preference. The matching
// engine treats triggers as read-only; carriers own their lifecycle.
type Trigger struct {
	ID        int64
	CarrierID uuid.UUID
	Type      TriggerType
	Config    TriggerConfig
	Active    bool
	CreatedAt time.Time
}

// Virtual reports whether the trigger was synthesized by the dispatcher from
// stated preferences rather than created by the carrier. Virtual triggers
// carry no row and therefore no positive id.
func (t Trigger) Virtual() bool {
	return t.ID <= 0
}
