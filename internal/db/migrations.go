package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS auctions (
		id BIGSERIAL PRIMARY KEY,
		auction_number TEXT NOT NULL UNIQUE,
		stops JSONB NOT NULL,
		distance_miles INTEGER NOT NULL,
		pickup_at TIMESTAMPTZ,
		delivery_at TIMESTAMPTZ,
		tag TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_received_at ON auctions (received_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_archived ON auctions (archived) WHERE archived = FALSE;`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_tag ON auctions (tag);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'offer_outcome') THEN
			CREATE TYPE offer_outcome AS ENUM ('pending', 'won', 'lost', 'cancelled');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS offers (
		id BIGSERIAL PRIMARY KEY,
		auction_number TEXT NOT NULL REFERENCES auctions(auction_number),
		carrier_id UUID NOT NULL,
		amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
		notes TEXT,
		outcome offer_outcome NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_offers_auction_carrier ON offers (auction_number, carrier_id);`,
	`CREATE INDEX IF NOT EXISTS idx_offers_carrier_id ON offers (carrier_id);`,
	`CREATE TABLE IF NOT EXISTS auction_awards (
		id BIGSERIAL PRIMARY KEY,
		auction_number TEXT NOT NULL REFERENCES auctions(auction_number),
		winner_carrier_id UUID NOT NULL,
		winner_amount_cents BIGINT NOT NULL,
		margin_cents BIGINT,
		awarded_by UUID NOT NULL,
		notes TEXT,
		awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_auction_awards_auction_number ON auction_awards (auction_number);`,
	`CREATE TABLE IF NOT EXISTS carrier_profiles (
		carrier_id UUID PRIMARY KEY,
		legal_name TEXT NOT NULL,
		mc_number TEXT NOT NULL UNIQUE,
		contact_name TEXT,
		phone TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS carrier_preferences (
		carrier_id UUID PRIMARY KEY,
		similar_load_alerts BOOLEAN NOT NULL DEFAULT TRUE,
		state_preferences TEXT[] NOT NULL DEFAULT '{}',
		distance_threshold_miles INTEGER NOT NULL DEFAULT 50,
		min_match_score INTEGER NOT NULL DEFAULT 70,
		prioritize_backhaul BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS carrier_favorites (
		carrier_id UUID NOT NULL,
		auction_number TEXT NOT NULL REFERENCES auctions(auction_number),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (carrier_id, auction_number)
	);`,
	`CREATE TABLE IF NOT EXISTS notification_triggers (
		id BIGSERIAL PRIMARY KEY,
		carrier_id UUID NOT NULL,
		trigger_type TEXT NOT NULL,
		trigger_config JSONB NOT NULL DEFAULT '{}',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notification_triggers_active ON notification_triggers (carrier_id) WHERE is_active = TRUE;`,
	`CREATE TABLE IF NOT EXISTS notification_logs (
		id BIGSERIAL PRIMARY KEY,
		recipient_id UUID NOT NULL,
		trigger_id BIGINT,
		auction_number TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		message TEXT NOT NULL,
		lane TEXT NOT NULL DEFAULT 'standard',
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notification_logs_recipient_sent ON notification_logs (recipient_id, sent_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_notification_logs_recipient_auction ON notification_logs (recipient_id, auction_number, notification_type, sent_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
