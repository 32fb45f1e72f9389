package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type CarrierRepository struct {
	db *gorm.DB
}

func NewCarrierRepository(db *gorm.DB) *CarrierRepository {
	return &CarrierRepository{db: db}
}

func (r *CarrierRepository) GetProfile(ctx context.Context, carrierID uuid.UUID) (*model.CarrierProfile, error) {
	var profile model.CarrierProfile
	err := r.db.WithContext(ctx).Raw(`
		SELECT carrier_id, legal_name, mc_number, contact_name, phone, created_at
		FROM carrier_profiles
		WHERE carrier_id = ?
		LIMIT 1
	`, carrierID).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.CarrierID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &profile, nil
}

type preferencesRow struct {
	CarrierID              uuid.UUID
	SimilarLoadAlerts      bool
	StatePreferences       pq.StringArray `gorm:"type:text[]"`
	DistanceThresholdMiles int
	MinMatchScore          int
	PrioritizeBackhaul     bool
	UpdatedAt              time.Time
}

// GetPreferences returns the carrier's stated preferences, falling back to
// defaults when no row exists yet.
func (r *CarrierRepository) GetPreferences(ctx context.Context, carrierID uuid.UUID) (model.Preferences, error) {
	var row preferencesRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT carrier_id, similar_load_alerts, state_preferences, distance_threshold_miles, min_match_score, prioritize_backhaul, updated_at
		FROM carrier_preferences
		WHERE carrier_id = ?
		LIMIT 1
	`, carrierID).Scan(&row).Error
	if err != nil {
		return model.Preferences{}, err
	}
	if row.CarrierID == uuid.Nil {
		return model.DefaultPreferences(carrierID), nil
	}
	return model.Preferences{
		CarrierID:              row.CarrierID,
		SimilarLoadAlerts:      row.SimilarLoadAlerts,
		StatePreferences:       row.StatePreferences,
		DistanceThresholdMiles: row.DistanceThresholdMiles,
		MinMatchScore:          row.MinMatchScore,
		PrioritizeBackhaul:     row.PrioritizeBackhaul,
		UpdatedAt:              row.UpdatedAt,
	}, nil
}

func (r *CarrierRepository) UpsertPreferences(ctx context.Context, prefs model.Preferences) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO carrier_preferences (carrier_id, similar_load_alerts, state_preferences, distance_threshold_miles, min_match_score, prioritize_backhaul)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (carrier_id)
		DO UPDATE SET
			similar_load_alerts = EXCLUDED.similar_load_alerts,
			state_preferences = EXCLUDED.state_preferences,
			distance_threshold_miles = EXCLUDED.distance_threshold_miles,
			min_match_score = EXCLUDED.min_match_score,
			prioritize_backhaul = EXCLUDED.prioritize_backhaul,
			updated_at = NOW()
	`,
		prefs.CarrierID,
		prefs.SimilarLoadAlerts,
		pq.StringArray(prefs.StatePreferences),
		prefs.DistanceThresholdMiles,
		prefs.MinMatchScore,
		prefs.PrioritizeBackhaul,
	).Error
}

// ListStatePreferenceCarriers backs the dispatcher's virtual-trigger
// synthesis: carriers who opted into similar-load alerts with state
// preferences but hold no explicit similar_load trigger of their own.
func (r *CarrierRepository) ListStatePreferenceCarriers(ctx context.Context) ([]model.Preferences, error) {
	var rows []preferencesRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT cp.carrier_id, cp.similar_load_alerts, cp.state_preferences, cp.distance_threshold_miles, cp.min_match_score, cp.prioritize_backhaul, cp.updated_at
		FROM carrier_preferences cp
		WHERE cp.similar_load_alerts = TRUE
			AND array_length(cp.state_preferences, 1) > 0
			AND NOT EXISTS (
				SELECT 1 FROM notification_triggers nt
				WHERE nt.carrier_id = cp.carrier_id
					AND nt.trigger_type = 'similar_load'
					AND nt.is_active = TRUE
			)
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	prefs := make([]model.Preferences, 0, len(rows))
	for _, row := range rows {
		prefs = append(prefs, model.Preferences{
			CarrierID:              row.CarrierID,
			SimilarLoadAlerts:      row.SimilarLoadAlerts,
			StatePreferences:       row.StatePreferences,
			DistanceThresholdMiles: row.DistanceThresholdMiles,
			MinMatchScore:          row.MinMatchScore,
			PrioritizeBackhaul:     row.PrioritizeBackhaul,
			UpdatedAt:              row.UpdatedAt,
		})
	}
	return prefs, nil
}

func (r *CarrierRepository) AddFavorite(ctx context.Context, carrierID uuid.UUID, auctionNumber string) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO carrier_favorites (carrier_id, auction_number)
		VALUES (?, ?)
		ON CONFLICT (carrier_id, auction_number) DO NOTHING
	`, carrierID, auctionNumber).Error
}

func (r *CarrierRepository) RemoveFavorite(ctx context.Context, carrierID uuid.UUID, auctionNumber string) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM carrier_favorites
		WHERE carrier_id = ? AND auction_number = ?
	`, carrierID, auctionNumber).Error
}

// ListFavorites returns a carrier's reference loads joined with the auction
// attributes the scorer needs.
func (r *CarrierRepository) ListFavorites(ctx context.Context, carrierID uuid.UUID) ([]model.Auction, error) {
	var rows []auctionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.auction_number, a.stops, a.distance_miles, a.pickup_at, a.delivery_at, a.tag, a.received_at, a.archived, a.archived_at
		FROM carrier_favorites cf
		JOIN auctions a ON a.auction_number = cf.auction_number
		WHERE cf.carrier_id = ?
		ORDER BY cf.created_at DESC
	`, carrierID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	auctions := make([]model.Auction, 0, len(rows))
	for _, row := range rows {
		auction, err := row.toModel()
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, nil
}

// ListAllFavorites returns every carrier's favorites, excluding carriers who
// already hold an explicit active trigger bound to that favorite.
func (r *CarrierRepository) ListAllFavorites(ctx context.Context) ([]model.FavoriteRef, error) {
	var rows []struct {
		CarrierID          uuid.UUID
		PrioritizeBackhaul bool
		auctionRow         `gorm:"embedded"`
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			cf.carrier_id,
			COALESCE(cp.prioritize_backhaul, TRUE) AS prioritize_backhaul,
			a.auction_number,
			a.stops,
			a.distance_miles,
			a.pickup_at,
			a.delivery_at,
			a.tag,
			a.received_at,
			a.archived,
			a.archived_at
		FROM carrier_favorites cf
		JOIN auctions a ON a.auction_number = cf.auction_number
		LEFT JOIN carrier_preferences cp ON cp.carrier_id = cf.carrier_id
		WHERE NOT EXISTS (
			SELECT 1 FROM notification_triggers nt
			WHERE nt.carrier_id = cf.carrier_id
				AND nt.is_active = TRUE
				AND nt.trigger_config->>'favoriteAuctionNumber' = cf.auction_number
		)
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	refs := make([]model.FavoriteRef, 0, len(rows))
	for _, row := range rows {
		auction, err := row.toModel()
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.FavoriteRef{
			CarrierID:          row.CarrierID,
			Auction:            auction,
			PrioritizeBackhaul: row.PrioritizeBackhaul,
		})
	}
	return refs, nil
}
