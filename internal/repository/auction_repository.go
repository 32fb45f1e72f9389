package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

type auctionRow struct {
	AuctionNumber string
	Stops         []byte
	DistanceMiles int
	PickupAt      *time.Time
	DeliveryAt    *time.Time
	Tag           string
	ReceivedAt    time.Time
	Archived      bool
	ArchivedAt    *time.Time
}

func (r auctionRow) toModel() (model.Auction, error) {
	var stops []string
	if len(r.Stops) > 0 {
		if err := json.Unmarshal(r.Stops, &stops); err != nil {
			return model.Auction{}, err
		}
	}
	return model.Auction{
		AuctionNumber: r.AuctionNumber,
		Stops:         stops,
		DistanceMiles: r.DistanceMiles,
		PickupAt:      r.PickupAt,
		DeliveryAt:    r.DeliveryAt,
		Tag:           r.Tag,
		ReceivedAt:    r.ReceivedAt,
		Archived:      r.Archived,
		ArchivedAt:    r.ArchivedAt,
	}, nil
}

const auctionColumns = `
	auction_number,
	stops,
	distance_miles,
	pickup_at,
	delivery_at,
	tag,
	received_at,
	archived,
	archived_at
`

func (r *AuctionRepository) Create(ctx context.Context, auction model.Auction) error {
	stops, err := json.Marshal(auction.Stops)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO auctions (auction_number, stops, distance_miles, pickup_at, delivery_at, tag, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		auction.AuctionNumber,
		string(stops),
		auction.DistanceMiles,
		auction.PickupAt,
		auction.DeliveryAt,
		auction.Tag,
		auction.ReceivedAt,
	).Error
}

func (r *AuctionRepository) GetByNumber(ctx context.Context, auctionNumber string) (*model.Auction, error) {
	var row auctionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE auction_number = ?
		LIMIT 1
	`, auctionNumber).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.AuctionNumber == "" {
		return nil, gorm.ErrRecordNotFound
	}
	auction, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// ListOpen returns unarchived auctions still inside their bidding window at
// the given cutoff, newest first.
func (r *AuctionRepository) ListOpen(ctx context.Context, openSince time.Time) ([]model.Auction, error) {
	return r.list(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE archived = FALSE AND received_at > ?
		ORDER BY received_at DESC
	`, openSince)
}

// ListExpiredUnawarded returns unarchived auctions whose window has closed
// and which carry no award yet, oldest first so reminders escalate the
// longest-waiting loads first.
func (r *AuctionRepository) ListExpiredUnawarded(ctx context.Context, expiredBefore time.Time) ([]model.Auction, error) {
	return r.list(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions a
		WHERE a.archived = FALSE
			AND a.received_at <= ?
			AND NOT EXISTS (
				SELECT 1 FROM auction_awards aw WHERE aw.auction_number = a.auction_number
			)
		ORDER BY a.received_at ASC
	`, expiredBefore)
}

// ArchiveExpired flips archived on auctions whose window closed before the
// expiry cutoff and whose creation day is strictly before dayBoundary.
// Awarded auctions are archived like any other; archival is orthogonal to
// award status. Returns the number of rows flipped.
func (r *AuctionRepository) ArchiveExpired(ctx context.Context, expiredBefore, dayBoundary, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE auctions
		SET archived = TRUE, archived_at = ?
		WHERE archived = FALSE
			AND received_at <= ?
			AND received_at < ?
	`, now, expiredBefore, dayBoundary)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteArchivedBefore removes at most limit archived auctions older than
// the retention horizon, together with their offers. Awarded auctions are
// kept for historical display.
func (r *AuctionRepository) DeleteArchivedBefore(ctx context.Context, horizon time.Time, limit int) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var numbers []string
		if err := tx.Raw(`
			SELECT auction_number
			FROM auctions a
			WHERE a.archived = TRUE
				AND a.received_at < ?
				AND NOT EXISTS (
					SELECT 1 FROM auction_awards aw WHERE aw.auction_number = a.auction_number
				)
			ORDER BY a.received_at ASC
			LIMIT ?
		`, horizon, limit).Scan(&numbers).Error; err != nil {
			return err
		}
		if len(numbers) == 0 {
			return nil
		}
		if err := tx.Exec(`DELETE FROM offers WHERE auction_number = ANY(?)`, pq.Array(numbers)).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM carrier_favorites WHERE auction_number = ANY(?)`, pq.Array(numbers)).Error; err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM auctions WHERE auction_number = ANY(?)`, pq.Array(numbers))
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// ListArchived returns archived auctions in a received_at range, used by the
// operator export.
func (r *AuctionRepository) ListArchived(ctx context.Context, from, to time.Time) ([]model.Auction, error) {
	return r.list(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE archived = TRUE AND received_at >= ? AND received_at < ?
		ORDER BY received_at ASC
	`, from, to)
}

// TryAdvisoryLock takes a session-scoped postgres advisory lock, used to
// keep the sweeps single-flight across instances.
func (r *AuctionRepository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	err := r.db.WithContext(ctx).Raw(`SELECT pg_try_advisory_lock(?)`, key).Scan(&acquired).Error
	return acquired, err
}

func (r *AuctionRepository) AdvisoryUnlock(ctx context.Context, key int64) error {
	return r.db.WithContext(ctx).Exec(`SELECT pg_advisory_unlock(?)`, key).Error
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Auction, error) {
	var rows []auctionRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
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
