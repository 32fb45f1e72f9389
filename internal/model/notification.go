package model

import (
	"time"

	"github.com/google/uuid"
)

type Lane string

const (
	LaneStandard Lane = "standard"
	LaneUrgent   Lane = "urgent"
)

// NotificationType labels a log row. Trigger-driven notifications reuse the
// trigger type's name; lifecycle notifications add their own.
type NotificationType string

const (
	NoticeSimilarLoad         = NotificationType(TriggerSimilarLoad)
	NoticeExactMatch          = NotificationType(TriggerExactMatch)
	NoticeFavoriteAvailable   = NotificationType(TriggerFavoriteAvailable)
	NoticeNewRoute            = NotificationType(TriggerNewRoute)
	NoticeDeadlineApproaching = NotificationType(TriggerDeadlineApproaching)

	NoticeAuctionWon  NotificationType = "auction_won"
	NoticeAuctionLost NotificationType = "auction_lost"
	NoticeBidReceived NotificationType = "bid_received"
	NoticeEscalation  NotificationType = "escalation"
)

// NotificationLog is the append-only delivery record. Rate limiting,
// cooldowns and the per-auction ceiling are all answered from this table,
// so rows are never updated or deleted.
type NotificationLog struct {
	ID            int64
	RecipientID   uuid.UUID
	TriggerID     *int64
	AuctionNumber string
	Type          NotificationType
	Message       string
	Lane          Lane
	SentAt        time.Time
}

// NotificationJob bundles every applicable trigger for one carrier into a
// single queue entry. One job per carrier per dispatch round.
type NotificationJob struct {
	JobID         uuid.UUID
	CarrierID     uuid.UUID
	AuctionNumber string
	Triggers      []Trigger
	EnqueuedAt    time.Time
}
