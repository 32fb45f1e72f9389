package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

const offerColumns = `
	id,
	auction_number,
	carrier_id,
	amount_cents,
	notes,
	outcome,
	created_at,
	updated_at
`

// Upsert writes a carrier's standing offer. A resubmission for the same
// auction updates the amount and notes in place; created_at keeps the first
// submission time so tie-breaking stays stable. The insert is guarded
// against auction_awards in the same statement, so an award committed by a
// concurrent transaction blocks the write; that case surfaces as
// gorm.ErrDuplicatedKey.
func (r *OfferRepository) Upsert(ctx context.Context, auctionNumber string, carrierID uuid.UUID, amountCents int64, notes *string) (*model.Offer, error) {
	var saved model.Offer
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO offers (auction_number, carrier_id, amount_cents, notes)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM auction_awards WHERE auction_number = ?
		)
		ON CONFLICT (auction_number, carrier_id)
		DO UPDATE SET
			amount_cents = EXCLUDED.amount_cents,
			notes = EXCLUDED.notes,
			outcome = 'pending',
			updated_at = NOW()
		RETURNING `+offerColumns+`
	`, auctionNumber, carrierID, amountCents, notes, auctionNumber).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == 0 {
		return nil, gorm.ErrDuplicatedKey
	}
	return &saved, nil
}

func (r *OfferRepository) ListByAuction(ctx context.Context, auctionNumber string) ([]model.Offer, error) {
	var offers []model.Offer
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+offerColumns+`
		FROM offers
		WHERE auction_number = ?
		ORDER BY amount_cents ASC, created_at ASC
	`, auctionNumber).Scan(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *OfferRepository) CountByAuction(ctx context.Context, auctionNumber string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM offers WHERE auction_number = ?
	`, auctionNumber).Scan(&count).Error
	return count, err
}

// SettleOutcomes marks the winner's offer won and every other offer on the
// auction lost. Called inside the award transaction.
func (r *OfferRepository) SettleOutcomes(ctx context.Context, tx *gorm.DB, auctionNumber string, winnerCarrierID uuid.UUID) error {
	if err := tx.WithContext(ctx).Exec(`
		UPDATE offers SET outcome = 'won', updated_at = NOW()
		WHERE auction_number = ? AND carrier_id = ?
	`, auctionNumber, winnerCarrierID).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec(`
		UPDATE offers SET outcome = 'lost', updated_at = NOW()
		WHERE auction_number = ? AND carrier_id <> ?
	`, auctionNumber, winnerCarrierID).Error
}

// BidHistory summarizes a carrier's past bidding on a tag, feeding the
// market-fit sub-score.
func (r *OfferRepository) BidHistory(ctx context.Context, carrierID uuid.UUID, tag string) (model.BidHistory, error) {
	var row struct {
		TotalOffers   int64
		OffersOnTag   int64
		AvgDistanceMi float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_offers,
			COUNT(*) FILTER (WHERE a.tag = ?) AS offers_on_tag,
			COALESCE(AVG(a.distance_miles), 0) AS avg_distance_mi
		FROM offers o
		JOIN auctions a ON a.auction_number = o.auction_number
		WHERE o.carrier_id = ?
	`, tag, carrierID).Scan(&row).Error
	if err != nil {
		return model.BidHistory{}, err
	}
	return model.BidHistory{
		TotalOffers:   row.TotalOffers,
		OffersOnTag:   row.OffersOnTag,
		AvgDistanceMi: row.AvgDistanceMi,
	}, nil
}

// CountsByAuction returns offer counts for a set of auctions, used by the
// archive export.
func (r *OfferRepository) CountsByAuction(ctx context.Context, auctionNumbers []string) (map[string]int64, error) {
	if len(auctionNumbers) == 0 {
		return map[string]int64{}, nil
	}
	var rows []struct {
		AuctionNumber string
		Count         int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT auction_number, COUNT(*) AS count
		FROM offers
		WHERE auction_number = ANY(?)
		GROUP BY auction_number
	`, pq.Array(auctionNumbers)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.AuctionNumber] = row.Count
	}
	return counts, nil
}
