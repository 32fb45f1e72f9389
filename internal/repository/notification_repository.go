package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, log model.NotificationLog) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO notification_logs (recipient_id, trigger_id, auction_number, notification_type, message, lane, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		log.RecipientID,
		log.TriggerID,
		log.AuctionNumber,
		string(log.Type),
		log.Message,
		string(log.Lane),
		log.SentAt,
	).Error
}

// CountForRecipientSince backs the rolling-hour rate limit.
func (r *NotificationRepository) CountForRecipientSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM notification_logs
		WHERE recipient_id = ? AND sent_at >= ?
	`, recipientID, since).Scan(&count).Error
	return count, err
}

// LastSentAt returns when the recipient was last notified about the auction,
// or nil when never. Backs the per-auction cooldown.
func (r *NotificationRepository) LastSentAt(ctx context.Context, recipientID uuid.UUID, auctionNumber string) (*time.Time, error) {
	var sentAt *time.Time
	err := r.db.WithContext(ctx).Raw(`
		SELECT MAX(sent_at) FROM notification_logs
		WHERE recipient_id = ? AND auction_number = ?
	`, recipientID, auctionNumber).Scan(&sentAt).Error
	if err != nil {
		return nil, err
	}
	return sentAt, nil
}

// CountForRecipientAuction backs the per-auction notification ceiling.
func (r *NotificationRepository) CountForRecipientAuction(ctx context.Context, recipientID uuid.UUID, auctionNumber string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM notification_logs
		WHERE recipient_id = ? AND auction_number = ?
	`, recipientID, auctionNumber).Scan(&count).Error
	return count, err
}

// LastOfTypeAt returns when any notification of the given type last went out
// for the auction, across all recipients. Backs the operator reminder
// cooldown on expired-unawarded escalation.
func (r *NotificationRepository) LastOfTypeAt(ctx context.Context, auctionNumber, notificationType string) (*time.Time, error) {
	var sentAt *time.Time
	err := r.db.WithContext(ctx).Raw(`
		SELECT MAX(sent_at) FROM notification_logs
		WHERE auction_number = ? AND notification_type = ?
	`, auctionNumber, notificationType).Scan(&sentAt).Error
	if err != nil {
		return nil, err
	}
	return sentAt, nil
}

func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]model.NotificationLog, error) {
	var logs []model.NotificationLog
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, recipient_id, trigger_id, auction_number, notification_type AS type, message, lane, sent_at
		FROM notification_logs
		WHERE recipient_id = ?
		ORDER BY sent_at DESC
		LIMIT ?
	`, recipientID, limit).Scan(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
