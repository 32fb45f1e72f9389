package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
	"github.com/loadlane/auction-service/internal/ranking"
	"github.com/loadlane/auction-service/internal/window"
)

// AuctionStore is the slice of the auction repository the lifecycle needs.
type AuctionStore interface {
	Create(ctx context.Context, auction model.Auction) error
	GetByNumber(ctx context.Context, auctionNumber string) (*model.Auction, error)
	ListOpen(ctx context.Context, openSince time.Time) ([]model.Auction, error)
	ListExpiredUnawarded(ctx context.Context, expiredBefore time.Time) ([]model.Auction, error)
	ArchiveExpired(ctx context.Context, expiredBefore, dayBoundary, now time.Time) (int64, error)
	DeleteArchivedBefore(ctx context.Context, horizon time.Time, limit int) (int64, error)
}

type OfferStore interface {
	Upsert(ctx context.Context, auctionNumber string, carrierID uuid.UUID, amountCents int64, notes *string) (*model.Offer, error)
	ListByAuction(ctx context.Context, auctionNumber string) ([]model.Offer, error)
}

type AwardStore interface {
	CreateIfAbsent(ctx context.Context, award model.Award) (*model.Award, error)
	GetByAuction(ctx context.Context, auctionNumber string) (*model.Award, error)
	Exists(ctx context.Context, auctionNumber string) (bool, error)
}

// Events receives lifecycle notifications. Implementations must not block;
// the service calls them inline on the request path.
type Events interface {
	AuctionCreated(auction model.Auction)
	AuctionAwarded(auction model.Auction, award model.Award)
	OfferSubmitted(auction model.Auction, offer model.Offer)
}

// NopEvents is the default sink when no dispatcher is wired.
type NopEvents struct{}

func (NopEvents) AuctionCreated(model.Auction)              {}
func (NopEvents) AuctionAwarded(model.Auction, model.Award) {}
func (NopEvents) OfferSubmitted(model.Auction, model.Offer) {}

type AuctionService struct {
	auctions AuctionStore
	offers   OfferStore
	awards   AwardStore
	events   Events
	policy   window.Policy
	now      func() time.Time
}

func NewAuctionService(auctions AuctionStore, offers OfferStore, awards AwardStore, events Events, policy window.Policy) *AuctionService {
	if events == nil {
		events = NopEvents{}
	}
	return &AuctionService{
		auctions: auctions,
		offers:   offers,
		awards:   awards,
		events:   events,
		policy:   policy,
		now:      time.Now,
	}
}

type CreateAuctionInput struct {
	AuctionNumber string
	Stops         []string
	DistanceMiles int
	PickupAt      *time.Time
	DeliveryAt    *time.Time
	Tag           string
	Principal     model.Principal
}

func (s *AuctionService) CreateAuction(ctx context.Context, input CreateAuctionInput) (*model.Auction, error) {
	if !input.Principal.IsOperator() {
		return nil, ErrPermissionDenied
	}
	if input.AuctionNumber == "" {
		return nil, fmt.Errorf("%w: auction_number is required", ErrInvalidInput)
	}
	if len(input.Stops) < 2 {
		return nil, fmt.Errorf("%w: at least two stops are required", ErrInvalidInput)
	}
	for _, stop := range input.Stops {
		if stop == "" {
			return nil, fmt.Errorf("%w: empty stop", ErrInvalidInput)
		}
	}
	if input.DistanceMiles <= 0 {
		return nil, fmt.Errorf("%w: distance_miles must be positive", ErrInvalidInput)
	}
	if input.PickupAt != nil && input.DeliveryAt != nil && input.DeliveryAt.Before(*input.PickupAt) {
		return nil, fmt.Errorf("%w: delivery_at before pickup_at", ErrInvalidInput)
	}

	auction := model.Auction{
		AuctionNumber: input.AuctionNumber,
		Stops:         input.Stops,
		DistanceMiles: input.DistanceMiles,
		PickupAt:      input.PickupAt,
		DeliveryAt:    input.DeliveryAt,
		Tag:           input.Tag,
		ReceivedAt:    s.now().UTC(),
	}
	if err := s.auctions.Create(ctx, auction); err != nil {
		return nil, err
	}

	s.events.AuctionCreated(auction)
	return &auction, nil
}

type SubmitOfferInput struct {
	AuctionNumber string
	AmountCents   int64
	Notes         *string
	Principal     model.Principal
}

// SubmitOffer records or replaces the carrier's standing offer. Offers are
// rejected once the window has closed or an award exists, whichever comes
// first.
func (s *AuctionService) SubmitOffer(ctx context.Context, input SubmitOfferInput) (*model.Offer, error) {
	if !input.Principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	if input.AmountCents < 0 {
		return nil, fmt.Errorf("%w: amount_cents must not be negative", ErrInvalidInput)
	}

	auction, err := s.auctions.GetByNumber(ctx, input.AuctionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	awarded, err := s.awards.Exists(ctx, auction.AuctionNumber)
	if err != nil {
		return nil, err
	}
	if awarded {
		return nil, ErrAuctionClosed
	}
	if !s.policy.IsOpen(s.now(), auction.ReceivedAt, auction.Archived) {
		return nil, ErrAuctionClosed
	}

	offer, err := s.offers.Upsert(ctx, auction.AuctionNumber, input.Principal.UserID, input.AmountCents, input.Notes)
	if err != nil {
		// The store refuses the write when an award landed after the check
		// above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAuctionClosed
		}
		return nil, err
	}

	s.events.OfferSubmitted(*auction, *offer)
	return offer, nil
}

type AwardAuctionInput struct {
	AuctionNumber   string
	WinnerCarrierID uuid.UUID
	MarginCents     *int64
	Notes           *string
	Principal       model.Principal
}

// AwardAuction selects the winning offer. The winning amount is copied from
// the carrier's standing offer at award time. Concurrent awards race on the
// storage-level unique index; exactly one wins.
func (s *AuctionService) AwardAuction(ctx context.Context, input AwardAuctionInput) (*model.Award, error) {
	if !input.Principal.IsOperator() {
		return nil, ErrPermissionDenied
	}
	if input.WinnerCarrierID == uuid.Nil {
		return nil, fmt.Errorf("%w: winner_carrier_id is required", ErrInvalidInput)
	}
	if input.MarginCents != nil && *input.MarginCents < 0 {
		return nil, fmt.Errorf("%w: margin_cents must not be negative", ErrInvalidInput)
	}

	auction, err := s.auctions.GetByNumber(ctx, input.AuctionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	offers, err := s.offers.ListByAuction(ctx, auction.AuctionNumber)
	if err != nil {
		return nil, err
	}
	ranked := ranking.Rank(offers)
	if ranked.Count() == 0 {
		return nil, ErrNoOffers
	}
	winning, ok := ranked.OfferBy(input.WinnerCarrierID)
	if !ok {
		return nil, fmt.Errorf("%w: carrier has no standing offer", ErrInvalidInput)
	}

	award, err := s.awards.CreateIfAbsent(ctx, model.Award{
		AuctionNumber:     auction.AuctionNumber,
		WinnerCarrierID:   winning.CarrierID,
		WinnerAmountCents: winning.AmountCents,
		MarginCents:       input.MarginCents,
		AwardedBy:         input.Principal.UserID,
		Notes:             input.Notes,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyAwarded
		}
		return nil, err
	}

	s.events.AuctionAwarded(*auction, *award)
	return award, nil
}

// AuctionSummary is the read model for one auction: lifecycle status, the
// standing ranking, and the award when one exists.
type AuctionSummary struct {
	Auction   model.Auction
	Status    model.AuctionStatus
	ExpiresAt time.Time
	Remaining time.Duration
	Offers    []model.Offer
	Award     *model.Award
}

func (s *AuctionService) GetSummary(ctx context.Context, auctionNumber string) (*AuctionSummary, error) {
	auction, err := s.auctions.GetByNumber(ctx, auctionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	offers, err := s.offers.ListByAuction(ctx, auction.AuctionNumber)
	if err != nil {
		return nil, err
	}

	award, err := s.awards.GetByAuction(ctx, auction.AuctionNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now()
	return &AuctionSummary{
		Auction:   *auction,
		Status:    s.statusOf(*auction, award != nil, now),
		ExpiresAt: s.policy.ExpiryOf(auction.ReceivedAt),
		Remaining: s.policy.Remaining(now, auction.ReceivedAt),
		Offers:    ranking.Rank(offers).Offers(),
		Award:     award,
	}, nil
}

func (s *AuctionService) ListOpen(ctx context.Context) ([]model.Auction, error) {
	return s.auctions.ListOpen(ctx, s.now().Add(-s.policy.BidWindow))
}

func (s *AuctionService) ListExpiredUnawarded(ctx context.Context) ([]model.Auction, error) {
	return s.auctions.ListExpiredUnawarded(ctx, s.now().Add(-s.policy.BidWindow))
}

// ArchiveExpired flips expired auctions to archived. Only auctions created
// before the current day are touched, so a load that expired this morning
// stays visible until tomorrow's sweep. Safe to run repeatedly.
func (s *AuctionService) ArchiveExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	y, m, d := now.Date()
	dayBoundary := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.auctions.ArchiveExpired(ctx, now.Add(-s.policy.BidWindow), dayBoundary, now)
}

// CleanupRetention deletes archived, unawarded auctions older than the
// retention horizon, at most limit per call.
func (s *AuctionService) CleanupRetention(ctx context.Context, retention time.Duration, limit int) (int64, error) {
	return s.auctions.DeleteArchivedBefore(ctx, s.now().Add(-retention), limit)
}

func (s *AuctionService) statusOf(auction model.Auction, awarded bool, now time.Time) model.AuctionStatus {
	switch {
	case awarded:
		return model.StatusAwarded
	case auction.Archived:
		return model.StatusArchived
	case s.policy.IsOpen(now, auction.ReceivedAt, auction.Archived):
		return model.StatusOpen
	default:
		return model.StatusExpiredUnawarded
	}
}
