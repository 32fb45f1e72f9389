package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadlane/auction-service/internal/model"
)

type TriggerRepository struct {
	db *gorm.DB
}

func NewTriggerRepository(db *gorm.DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

type triggerRow struct {
	ID            int64
	CarrierID     uuid.UUID
	TriggerType   string
	TriggerConfig []byte
	IsActive      bool
	CreatedAt     time.Time
}

func (r triggerRow) toModel() (model.Trigger, error) {
	var config model.TriggerConfig
	if len(r.TriggerConfig) > 0 {
		if err := json.Unmarshal(r.TriggerConfig, &config); err != nil {
			return model.Trigger{}, err
		}
	}
	return model.Trigger{
		ID:        r.ID,
		CarrierID: r.CarrierID,
		Type:      model.TriggerType(r.TriggerType),
		Config:    config,
		Active:    r.IsActive,
		CreatedAt: r.CreatedAt,
	}, nil
}

const triggerColumns = `
	id,
	carrier_id,
	trigger_type,
	trigger_config,
	is_active,
	created_at
`

func (r *TriggerRepository) Create(ctx context.Context, trigger model.Trigger) (*model.Trigger, error) {
	config, err := json.Marshal(trigger.Config)
	if err != nil {
		return nil, err
	}
	var row triggerRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO notification_triggers (carrier_id, trigger_type, trigger_config, is_active)
		VALUES (?, ?, ?, ?)
		RETURNING `+triggerColumns+`
	`, trigger.CarrierID, string(trigger.Type), string(config), trigger.Active).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	saved, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *TriggerRepository) SetActive(ctx context.Context, id int64, carrierID uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE notification_triggers
		SET is_active = ?
		WHERE id = ? AND carrier_id = ?
	`, active, id, carrierID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActive returns every active trigger across all carriers, for the
// auction-creation fan-out.
func (r *TriggerRepository) ListActive(ctx context.Context) ([]model.Trigger, error) {
	return r.list(ctx, `
		SELECT `+triggerColumns+`
		FROM notification_triggers
		WHERE is_active = TRUE
		ORDER BY carrier_id, id
	`)
}

func (r *TriggerRepository) ListByCarrier(ctx context.Context, carrierID uuid.UUID) ([]model.Trigger, error) {
	return r.list(ctx, `
		SELECT `+triggerColumns+`
		FROM notification_triggers
		WHERE carrier_id = ?
		ORDER BY id
	`, carrierID)
}

func (r *TriggerRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Trigger, error) {
	var rows []triggerRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	triggers := make([]model.Trigger, 0, len(rows))
	for _, row := range rows {
		trigger, err := row.toModel()
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, trigger)
	}
	return triggers, nil
}
