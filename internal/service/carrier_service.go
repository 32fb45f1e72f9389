package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type CarrierStore interface {
	GetProfile(ctx context.Context, carrierID uuid.UUID) (*model.CarrierProfile, error)
	GetPreferences(ctx context.Context, carrierID uuid.UUID) (model.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs model.Preferences) error
	AddFavorite(ctx context.Context, carrierID uuid.UUID, auctionNumber string) error
	RemoveFavorite(ctx context.Context, carrierID uuid.UUID, auctionNumber string) error
	ListFavorites(ctx context.Context, carrierID uuid.UUID) ([]model.Auction, error)
}

type TriggerStore interface {
	Create(ctx context.Context, trigger model.Trigger) (*model.Trigger, error)
	SetActive(ctx context.Context, id int64, carrierID uuid.UUID, active bool) error
	ListByCarrier(ctx context.Context, carrierID uuid.UUID) ([]model.Trigger, error)
}

type NotificationStore interface {
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]model.NotificationLog, error)
}

type AuctionLookup interface {
	GetByNumber(ctx context.Context, auctionNumber string) (*model.Auction, error)
}

// CarrierService covers the carrier-facing surface outside the bidding path:
// profile, alert preferences, favorites and explicit triggers.
type CarrierService struct {
	carriers      CarrierStore
	triggers      TriggerStore
	notifications NotificationStore
	auctions      AuctionLookup
}

func NewCarrierService(carriers CarrierStore, triggers TriggerStore, notifications NotificationStore, auctions AuctionLookup) *CarrierService {
	return &CarrierService{
		carriers:      carriers,
		triggers:      triggers,
		notifications: notifications,
		auctions:      auctions,
	}
}

func (s *CarrierService) GetProfile(ctx context.Context, principal model.Principal) (*model.CarrierProfile, error) {
	if !principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	profile, err := s.carriers.GetProfile(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *CarrierService) GetPreferences(ctx context.Context, principal model.Principal) (model.Preferences, error) {
	if !principal.IsCarrier() {
		return model.Preferences{}, ErrPermissionDenied
	}
	return s.carriers.GetPreferences(ctx, principal.UserID)
}

type UpdatePreferencesInput struct {
	SimilarLoadAlerts      bool
	StatePreferences       []string
	DistanceThresholdMiles int
	MinMatchScore          int
	PrioritizeBackhaul     bool
	Principal              model.Principal
}

func (s *CarrierService) UpdatePreferences(ctx context.Context, input UpdatePreferencesInput) (model.Preferences, error) {
	if !input.Principal.IsCarrier() {
		return model.Preferences{}, ErrPermissionDenied
	}
	if input.DistanceThresholdMiles <= 0 {
		return model.Preferences{}, fmt.Errorf("%w: distance_threshold_miles must be positive", ErrInvalidInput)
	}
	if input.MinMatchScore < 0 || input.MinMatchScore > 100 {
		return model.Preferences{}, fmt.Errorf("%w: min_match_score must be between 0 and 100", ErrInvalidInput)
	}

	prefs := model.Preferences{
		CarrierID:              input.Principal.UserID,
		SimilarLoadAlerts:      input.SimilarLoadAlerts,
		StatePreferences:       input.StatePreferences,
		DistanceThresholdMiles: input.DistanceThresholdMiles,
		MinMatchScore:          input.MinMatchScore,
		PrioritizeBackhaul:     input.PrioritizeBackhaul,
	}
	if err := s.carriers.UpsertPreferences(ctx, prefs); err != nil {
		return model.Preferences{}, err
	}
	return prefs, nil
}

func (s *CarrierService) AddFavorite(ctx context.Context, principal model.Principal, auctionNumber string) error {
	if !principal.IsCarrier() {
		return ErrPermissionDenied
	}
	if _, err := s.auctions.GetByNumber(ctx, auctionNumber); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.carriers.AddFavorite(ctx, principal.UserID, auctionNumber)
}

func (s *CarrierService) RemoveFavorite(ctx context.Context, principal model.Principal, auctionNumber string) error {
	if !principal.IsCarrier() {
		return ErrPermissionDenied
	}
	return s.carriers.RemoveFavorite(ctx, principal.UserID, auctionNumber)
}

func (s *CarrierService) ListFavorites(ctx context.Context, principal model.Principal) ([]model.Auction, error) {
	if !principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	return s.carriers.ListFavorites(ctx, principal.UserID)
}

type CreateTriggerInput struct {
	Type      model.TriggerType
	Config    model.TriggerConfig
	Principal model.Principal
}

func (s *CarrierService) CreateTrigger(ctx context.Context, input CreateTriggerInput) (*model.Trigger, error) {
	if !input.Principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	if !knownTriggerType(input.Type) {
		return nil, fmt.Errorf("%w: unknown trigger type %q", ErrInvalidInput, input.Type)
	}
	if input.Config.FavoriteAuctionNumber != "" {
		if _, err := s.auctions.GetByNumber(ctx, input.Config.FavoriteAuctionNumber); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: favorite auction does not exist", ErrInvalidInput)
			}
			return nil, err
		}
	}
	return s.triggers.Create(ctx, model.Trigger{
		CarrierID: input.Principal.UserID,
		Type:      input.Type,
		Config:    input.Config,
		Active:    true,
	})
}

func (s *CarrierService) SetTriggerActive(ctx context.Context, principal model.Principal, triggerID int64, active bool) error {
	if !principal.IsCarrier() {
		return ErrPermissionDenied
	}
	err := s.triggers.SetActive(ctx, triggerID, principal.UserID, active)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *CarrierService) ListTriggers(ctx context.Context, principal model.Principal) ([]model.Trigger, error) {
	if !principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	return s.triggers.ListByCarrier(ctx, principal.UserID)
}

func (s *CarrierService) ListNotifications(ctx context.Context, principal model.Principal, limit int) ([]model.NotificationLog, error) {
	if !principal.IsCarrier() {
		return nil, ErrPermissionDenied
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.notifications.ListForRecipient(ctx, principal.UserID, limit)
}

func knownTriggerType(t model.TriggerType) bool {
	for _, known := range model.KnownTriggerTypes {
		if t == known {
			return true
		}
	}
	return false
}
