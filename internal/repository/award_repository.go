package repository

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type AwardRepository struct {
	db     *gorm.DB
	offers *OfferRepository
}

func NewAwardRepository(db *gorm.DB, offers *OfferRepository) *AwardRepository {
	return &AwardRepository{db: db, offers: offers}
}

const awardColumns = `
	id,
	auction_number,
	winner_carrier_id,
	winner_amount_cents,
	margin_cents,
	awarded_by,
	notes,
	awarded_at
`

// CreateIfAbsent inserts the award iff none exists for the auction number,
// and settles offer outcomes in the same transaction. Concurrent attempts
// race on the unique index: the loser's INSERT ... ON CONFLICT DO NOTHING
// returns no row and the whole transaction rolls back with
// gorm.ErrDuplicatedKey.
func (r *AwardRepository) CreateIfAbsent(ctx context.Context, award model.Award) (*model.Award, error) {
	var saved model.Award
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inserted []model.Award
		err := tx.Raw(`
			INSERT INTO auction_awards (auction_number, winner_carrier_id, winner_amount_cents, margin_cents, awarded_by, notes)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (auction_number) DO NOTHING
			RETURNING `+awardColumns+`
		`,
			award.AuctionNumber,
			award.WinnerCarrierID,
			award.WinnerAmountCents,
			award.MarginCents,
			award.AwardedBy,
			award.Notes,
		).Scan(&inserted).Error
		if err != nil {
			return err
		}
		if len(inserted) == 0 {
			return gorm.ErrDuplicatedKey
		}
		saved = inserted[0]

		return r.offers.SettleOutcomes(ctx, tx, award.AuctionNumber, award.WinnerCarrierID)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *AwardRepository) GetByAuction(ctx context.Context, auctionNumber string) (*model.Award, error) {
	var award model.Award
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+awardColumns+`
		FROM auction_awards
		WHERE auction_number = ?
		LIMIT 1
	`, auctionNumber).Scan(&award).Error
	if err != nil {
		return nil, err
	}
	if award.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &award, nil
}

func (r *AwardRepository) Exists(ctx context.Context, auctionNumber string) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (SELECT 1 FROM auction_awards WHERE auction_number = ?)
	`, auctionNumber).Scan(&exists).Error
	return exists, err
}

// ListByAuctions returns awards for a set of auctions, used by the archive
// export.
func (r *AwardRepository) ListByAuctions(ctx context.Context, auctionNumbers []string) (map[string]model.Award, error) {
	if len(auctionNumbers) == 0 {
		return map[string]model.Award{}, nil
	}
	var awards []model.Award
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+awardColumns+`
		FROM auction_awards
		WHERE auction_number = ANY(?)
	`, pq.Array(auctionNumbers)).Scan(&awards).Error
	if err != nil {
		return nil, err
	}
	byNumber := make(map[string]model.Award, len(awards))
	for _, award := range awards {
		byNumber[award.AuctionNumber] = award
	}
	return byNumber, nil
}
