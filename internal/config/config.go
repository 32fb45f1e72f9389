package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type AuctionConfig struct {
	BidWindow     time.Duration
	RetentionDays int
}

type MatchingConfig struct {
	MinMatchScore int
}

type NotifyConfig struct {
	RateLimitPerHour   int
	Cooldown           time.Duration
	MaxPerAuction      int
	WorkerConcurrency  int
	QueueDepth         int
	EscalationCooldown time.Duration
	OperatorIDs        []string
}

type SweepConfig struct {
	ArchiveInterval    time.Duration
	EscalationInterval time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Auction     AuctionConfig
	Matching    MatchingConfig
	Notify      NotifyConfig
	Sweep       SweepConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Auction: AuctionConfig{
			BidWindow:     time.Duration(v.GetInt("AUCTION_BID_WINDOW_MINUTES")) * time.Minute,
			RetentionDays: v.GetInt("AUCTION_RETENTION_DAYS"),
		},
		Matching: MatchingConfig{
			MinMatchScore: v.GetInt("MATCHING_MIN_SCORE"),
		},
		Notify: NotifyConfig{
			RateLimitPerHour:   v.GetInt("NOTIFY_RATE_LIMIT_PER_HOUR"),
			Cooldown:           time.Duration(v.GetInt("NOTIFY_COOLDOWN_MINUTES")) * time.Minute,
			MaxPerAuction:      v.GetInt("NOTIFY_MAX_PER_AUCTION"),
			WorkerConcurrency:  v.GetInt("NOTIFY_WORKER_CONCURRENCY"),
			QueueDepth:         v.GetInt("NOTIFY_QUEUE_DEPTH"),
			EscalationCooldown: time.Duration(v.GetInt("NOTIFY_ESCALATION_COOLDOWN_MINUTES")) * time.Minute,
			OperatorIDs:        parseList(v.GetString("NOTIFY_OPERATOR_IDS")),
		},
		Sweep: SweepConfig{
			ArchiveInterval:    time.Duration(v.GetInt("SWEEP_ARCHIVE_INTERVAL_MINUTES")) * time.Minute,
			EscalationInterval: time.Duration(v.GetInt("SWEEP_ESCALATION_INTERVAL_MINUTES")) * time.Minute,
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Auction.BidWindow == 0 {
		cfg.Auction.BidWindow = 25 * time.Minute
	}
	if cfg.Auction.RetentionDays == 0 {
		cfg.Auction.RetentionDays = 180
	}
	if cfg.Matching.MinMatchScore == 0 {
		cfg.Matching.MinMatchScore = 70
	}
	if cfg.Notify.RateLimitPerHour == 0 {
		cfg.Notify.RateLimitPerHour = 20
	}
	if cfg.Notify.Cooldown == 0 {
		cfg.Notify.Cooldown = 8 * time.Minute
	}
	if cfg.Notify.MaxPerAuction == 0 {
		cfg.Notify.MaxPerAuction = 3
	}
	if cfg.Notify.WorkerConcurrency == 0 {
		cfg.Notify.WorkerConcurrency = 4
	}
	if cfg.Notify.QueueDepth == 0 {
		cfg.Notify.QueueDepth = 1024
	}
	if cfg.Notify.EscalationCooldown == 0 {
		cfg.Notify.EscalationCooldown = 5 * time.Minute
	}
	if cfg.Sweep.ArchiveInterval == 0 {
		cfg.Sweep.ArchiveInterval = 15 * time.Minute
	}
	if cfg.Sweep.EscalationInterval == 0 {
		cfg.Sweep.EscalationInterval = time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Auction.BidWindow < time.Minute {
		return fmt.Errorf("AUCTION_BID_WINDOW_MINUTES must be at least 1")
	}
	if cfg.Notify.MaxPerAuction < 1 {
		return fmt.Errorf("NOTIFY_MAX_PER_AUCTION must be at least 1")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
